package java

import (
	"bytes"
	"context"
	"fmt"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/url"

	"github.com/libshade/libshade/model"
)

// Reifier writes a code model back out as Java sources under a
// destination directory.
type Reifier struct {
	fs      afs.Service
	emitter model.Emitter
}

// NewReifier creates a reifier backed by the abstract file system.
func NewReifier() *Reifier {
	return &Reifier{fs: afs.New()}
}

// Reify emits every class of the model as a compilation unit and returns
// the destination directory.
func (r *Reifier) Reify(ctx context.Context, m *model.CodeModel, outputDir string) (string, error) {
	files, err := r.emitter.EmitModel(m)
	if err != nil {
		return "", fmt.Errorf("failed to emit model: %w", err)
	}
	for relPath, data := range files {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		dest := url.Join(outputDir, relPath)
		if err := r.fs.Upload(ctx, dest, file.DefaultFileOsMode, bytes.NewReader(data)); err != nil {
			return "", fmt.Errorf("failed to write %s: %w", dest, err)
		}
	}
	return outputDir, nil
}
