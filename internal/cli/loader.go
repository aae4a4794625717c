package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue/token"

	"github.com/roach88/promotions/internal/compiler"
	"github.com/roach88/promotions/internal/ir"
)

// LoadMode controls how errors are handled during promotion loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// promotionExts lists the file extensions the loader picks up.
var promotionExts = map[string]bool{
	".cue":  true,
	".yaml": true,
	".yml":  true,
	".json": true,
}

// LoadResult contains the promotions loaded from a set of paths.
type LoadResult struct {
	Promotions []ir.Promotion
	Files      []string // Files read, in load order
}

// LoadError represents an error that occurred during promotion loading.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadPromotions reads promotions from files and directories. Directories
// are walked in lexical order; files keep the order they were given in.
// Promotions are returned in file order, then declaration order.
//
// A nil result means nothing could be read at all (missing path, no files).
func LoadPromotions(paths []string, mode LoadMode) (*LoadResult, []error) {
	files, err := collectFiles(paths)
	if err != nil {
		return nil, []error{err}
	}
	if len(files) == 0 {
		return nil, []error{&LoadError{
			Code:    ErrCodeNoFiles,
			Message: fmt.Sprintf("no promotion files found in %s", strings.Join(paths, ", ")),
		}}
	}

	result := &LoadResult{Files: files, Promotions: []ir.Promotion{}}
	var errs []error
	for _, path := range files {
		ps, err := compiler.LoadFile(path)
		if err != nil {
			errs = append(errs, convertCompileError(err, path))
			if mode == LoadModeFailFast {
				return result, errs
			}
			continue
		}
		result.Promotions = append(result.Promotions, ps...)
	}
	return result, errs
}

// collectFiles expands directories into the promotion files they contain.
func collectFiles(paths []string) ([]string, error) {
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("path not found: %s", p)}
		}
		if err != nil {
			return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing %s: %v", p, err)}
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}
		found, err := FindPromotionFiles(p)
		if err != nil {
			return nil, &LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}
		}
		files = append(files, found...)
	}
	return files, nil
}

// FindPromotionFiles walks the directory and returns all promotion file
// paths (.cue, .yaml, .yml, .json).
func FindPromotionFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && promotionExts[strings.ToLower(filepath.Ext(path))] {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// convertCompileError converts a compiler error to a LoadError with position info.
func convertCompileError(err error, path string) *LoadError {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		msg := fmt.Sprintf("%s: %s", compileErr.Field, compileErr.Message)
		if !compileErr.Pos.IsValid() {
			msg = path + ": " + msg
		}
		return &LoadError{
			Code:    ErrCodeLoadFailed,
			Message: msg,
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{
		Code:    ErrCodeLoadFailed,
		Message: fmt.Sprintf("%s: %v", path, err),
	}
}

// firstLoadError returns the code and message of a load failure.
func firstLoadError(errs []error) (string, string) {
	var loadErr *LoadError
	if errors.As(errs[0], &loadErr) {
		return loadErr.Code, loadErr.Message
	}
	return ErrCodeGeneric, errs[0].Error()
}
