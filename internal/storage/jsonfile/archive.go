package jsonfile

import (
	"archive/tar"
	"io"
	"os"
	"path/filepath"

	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
)

// Archive writes a gzip-compressed tar of the store's data files to w, for
// off-site backups. Missing files are skipped.
func (s *Store) Archive(w io.Writer) error {
	gz := pgzip.NewWriter(w)
	tw := tar.NewWriter(gz)

	for _, name := range []string{MovementsFile, CustomersFile, OrdersFile, ItemsFile} {
		path := filepath.Join(s.dir, name)
		info, err := os.Stat(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return errors.Wrapf(err, "stat %s", name)
		}

		hdr, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return errors.Wrapf(err, "header %s", name)
		}
		hdr.Name = name
		if err := tw.WriteHeader(hdr); err != nil {
			return errors.Wrapf(err, "write header %s", name)
		}

		f, err := os.Open(path)
		if err != nil {
			return errors.Wrapf(err, "open %s", name)
		}
		_, err = io.Copy(tw, f)
		f.Close()
		if err != nil {
			return errors.Wrapf(err, "copy %s", name)
		}
	}

	if err := tw.Close(); err != nil {
		return errors.Wrap(err, "close tar")
	}
	return errors.Wrap(gz.Close(), "close gzip")
}
