// Public domain.

package runner

import (
	"context"
	"io"
	"os"
	"path/filepath"
)

// pendingFile is an output written under a temporary name and renamed
// into place only when the run succeeds.
type pendingFile struct {
	*os.File
	path string
}

func createPending(path string) (*pendingFile, error) {
	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return nil, err
	}
	return &pendingFile{f, path}, nil
}

func (p *pendingFile) commit() error {
	if err := p.Close(); err != nil {
		os.Remove(p.Name())
		return err
	}
	return os.Rename(p.Name(), p.path)
}

func (p *pendingFile) abort() {
	p.Close()
	os.Remove(p.Name())
}

// RunFiles runs on named files.  Input "-" is standard input and output
// "-" is standard output.  Named outputs, including samplesPath if not
// empty, are left untouched unless the whole run succeeds.
func RunFiles(ctx context.Context, inPath, outPath, samplesPath string, opt Options) (*Summary, error) {
	var in io.Reader = os.Stdin
	if inPath != "-" {
		f, err := os.Open(inPath)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		in = f
	}
	var pending []*pendingFile
	defer func() {
		for _, p := range pending {
			p.abort()
		}
	}()
	var out io.Writer = os.Stdout
	if outPath != "-" {
		p, err := createPending(outPath)
		if err != nil {
			return nil, err
		}
		pending = append(pending, p)
		out = p
	}
	if samplesPath != "" {
		p, err := createPending(samplesPath)
		if err != nil {
			return nil, err
		}
		pending = append(pending, p)
		opt.Samples = p
	}
	sum, err := Run(ctx, in, out, opt)
	if err != nil {
		return nil, err
	}
	for len(pending) > 0 {
		p := pending[0]
		pending = pending[1:]
		if err := p.commit(); err != nil {
			return nil, err
		}
	}
	return sum, nil
}
