package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"

	"github.com/google/uuid"
)

// CoverStore writes generated cover images: always to a fixed local name
// that is overwritten each time, and to a bucket under a unique name when
// one is configured.
type CoverStore struct {
	local     Uploader
	localName string
	remote    Uploader
	prefix    string
}

func NewCoverStore(local Uploader, localName string, remote Uploader, prefix string) *CoverStore {
	if localName == "" {
		localName = "cover.png"
	}
	if prefix == "" {
		prefix = "covers"
	}
	return &CoverStore{local: local, localName: localName, remote: remote, prefix: prefix}
}

// SaveCover returns the locations written. Failures of either target are
// joined into the error; a partial success still reports its location.
func (s *CoverStore) SaveCover(ctx context.Context, png []byte) ([]string, error) {
	var stored []string
	var errs []error

	if s.local != nil {
		p, err := s.local.Upload(ctx, s.localName, "image/png", bytes.NewReader(png))
		if err != nil {
			errs = append(errs, fmt.Errorf("local cover: %w", err))
		} else {
			stored = append(stored, p)
		}
	}
	if s.remote != nil {
		name := path.Join(s.prefix, uuid.NewString()+".png")
		p, err := s.remote.Upload(ctx, name, "image/png", bytes.NewReader(png))
		if err != nil {
			errs = append(errs, fmt.Errorf("remote cover: %w", err))
		} else {
			stored = append(stored, p)
		}
	}
	return stored, errors.Join(errs...)
}
