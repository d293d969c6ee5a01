package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"showsweep/internal/services"
)

// ErrIntegrity indicates PRAGMA integrity_check reported problems.
var ErrIntegrity = errors.New("database integrity check failed")

// CheckIntegrity runs PRAGMA integrity_check and returns the reported problems.
func (s *Store) CheckIntegrity(ctx context.Context) error {
	connCtx, cancel := context.WithTimeout(ensureContext(ctx), 30*time.Second)
	defer cancel()

	rows, err := s.db.QueryContext(connCtx, "PRAGMA integrity_check")
	if err != nil {
		return wrapErr("integrity check", err)
	}
	defer rows.Close()

	var problems []string
	for rows.Next() {
		var line string
		if err := rows.Scan(&line); err != nil {
			return wrapErr("integrity check", err)
		}
		if !strings.EqualFold(line, "ok") {
			problems = append(problems, line)
		}
	}
	if err := rows.Err(); err != nil {
		return wrapErr("integrity check", err)
	}
	if len(problems) > 0 {
		return services.Wrap(services.ErrDataIntegrity, "store", "integrity check", strings.Join(problems, "; "), ErrIntegrity)
	}
	return nil
}

// Backup writes a consistent copy of the database to dest, which must not exist.
func (s *Store) Backup(ctx context.Context, dest string) error {
	if _, err := os.Stat(dest); err == nil {
		return services.Wrap(services.ErrValidation, "store", "backup", fmt.Sprintf("destination %s already exists", dest), nil)
	}
	if _, err := s.execWithRetry(ctx, "VACUUM INTO ?", dest); err != nil {
		return wrapErr("backup", err)
	}
	return nil
}

// Restore replaces the database at dbPath with the backup at src. The store
// must not be open. The backup is integrity-checked before it is copied.
func Restore(ctx context.Context, dbPath, src string) error {
	if info, err := os.Stat(src); err != nil || info.IsDir() {
		return services.Wrap(services.ErrValidation, "store", "restore", fmt.Sprintf("backup %s is not a readable file", src), err)
	}
	candidate, err := OpenPath(src)
	if err != nil {
		return err
	}
	checkErr := candidate.CheckIntegrity(ctx)
	closeErr := candidate.Close()
	if checkErr != nil {
		return checkErr
	}
	if closeErr != nil {
		return wrapErr("restore", closeErr)
	}

	for _, suffix := range []string{"-wal", "-shm"} {
		if err := os.Remove(dbPath + suffix); err != nil && !errors.Is(err, os.ErrNotExist) {
			return wrapErr("restore", err)
		}
	}
	if err := copyFile(src, dbPath); err != nil {
		return wrapErr("restore", err)
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	tmp := dst + ".restore"
	out, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(tmp)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, dst)
}
