package exec

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"candor/internal/diag"
	"candor/internal/hir"
	"candor/internal/parser"
	"candor/internal/source"
)

// CompileResult is one source file's outcome from CompileDir: either
// a fully lowered hir.Module, or the error/diagnostics that stopped
// it getting there.
type CompileResult struct {
	Path   string
	FileID source.FileID
	Module *hir.Module
	Diags  *diag.Bag
	Err    error
}

// CompileDir parses and lowers every ".candor" file under dir
// concurrently, one goroutine per file capped at jobs (GOMAXPROCS(0)
// when jobs <= 0), mirroring the teacher's TokenizeDir/ParseDir
// fan-out: load every file up front, then run the rest of each file's
// pipeline in its own errgroup goroutine, writing into a pre-sized
// results slice by index so no result needs a mutex. Compilation
// only — CompileDir never runs any of the code it builds; exec stays
// single-threaded per Isolate once a module reaches CallFunction
// (spec.md §5), only building is ever fanned out.
func CompileDir(ctx context.Context, dir string, jobs int) (*source.FileSet, []CompileResult, error) {
	files, err := listCandorFiles(dir)
	if err != nil {
		return nil, nil, err
	}
	fileSet := source.NewFileSetWithBase(dir)
	if len(files) == 0 {
		return fileSet, nil, nil
	}

	fileIDs := make([]source.FileID, len(files))
	loadErrs := make([]error, len(files))
	for i, path := range files {
		id, err := fileSet.Load(path)
		if err != nil {
			loadErrs[i] = err
			continue
		}
		fileIDs[i] = id
	}

	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	results := make([]CompileResult, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(files)))

	for i, path := range files {
		i, path := i, path
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			results[i] = compileFile(fileSet, path, fileIDs[i], loadErrs[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fileSet, results, err
	}
	return fileSet, results, nil
}

// compileFile runs one file through the parser and the HIR builder,
// the same two steps cmd/candor's build/run subcommands run serially
// for a single file.
func compileFile(fileSet *source.FileSet, path string, fileID source.FileID, loadErr error) CompileResult {
	if loadErr != nil {
		return CompileResult{Path: path, Err: loadErr}
	}

	file := fileSet.Get(fileID)
	p := parser.New(string(file.Content), fileID)
	astMod, err := p.ParseModule()
	if err != nil {
		return CompileResult{Path: path, FileID: fileID, Err: err}
	}

	diags := diag.NewBag(100)
	mod := hir.NewBuilder(astMod, diags).Build()
	return CompileResult{Path: path, FileID: fileID, Module: mod, Diags: diags}
}

func listCandorFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(path, ".candor") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}
