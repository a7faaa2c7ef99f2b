// Package fileops hands generated artifacts back to the invoking user.
package fileops

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/CodeMonkeyCybersecurity/hermes/pkg/user"
	cerr "github.com/cockroachdb/errors"
	"github.com/hashicorp/go-multierror"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// Lchown is swapped out in tests, which cannot chown to another user.
var Lchown = os.Lchown

// Chown gives path to id. It does nothing unless hermes runs elevated.
func Chown(ctx context.Context, path string, id *user.Identity) error {
	if id == nil || !id.Elevated {
		return nil
	}
	otelzap.Ctx(ctx).Debug("Changing owner",
		zap.String("path", path),
		zap.String("owner", id.Username))
	if err := Lchown(path, int(id.UID), int(id.GID)); err != nil {
		return cerr.Wrapf(err, "chown %s", path)
	}
	return nil
}

// ChownTree gives root and everything under it to id. It keeps going after a
// failure and reports every path it could not change.
func ChownTree(ctx context.Context, root string, id *user.Identity) error {
	logger := otelzap.Ctx(ctx)
	if id == nil || !id.Elevated {
		logger.Debug("Not elevated, ownership unchanged", zap.String("path", root))
		return nil
	}

	var result *multierror.Error
	count := 0
	walkErr := filepath.WalkDir(root, func(path string, _ fs.DirEntry, err error) error {
		if err != nil {
			result = multierror.Append(result, err)
			if path == root {
				return err
			}
			return nil
		}
		if err := Lchown(path, int(id.UID), int(id.GID)); err != nil {
			result = multierror.Append(result, cerr.Wrapf(err, "chown %s", path))
			return nil
		}
		count++
		return nil
	})
	if walkErr != nil && result == nil {
		result = multierror.Append(result, walkErr)
	}

	logger.Info("Ownership normalized",
		zap.String("path", root),
		zap.String("owner", id.String()),
		zap.Int("changed", count))
	return result.ErrorOrNil()
}

// Normalize chowns each directory tree and each file, aggregating failures.
func Normalize(ctx context.Context, id *user.Identity, trees []string, files []string) error {
	var result *multierror.Error
	for _, t := range trees {
		if err := ChownTree(ctx, t, id); err != nil {
			result = multierror.Append(result, err)
		}
	}
	for _, f := range files {
		if err := Chown(ctx, f, id); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}
