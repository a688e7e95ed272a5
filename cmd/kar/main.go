// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/user"
	"path/filepath"
	"strings"
	"time"

	"github.com/devblok/ffp/utility/kar"
	log "github.com/sirupsen/logrus"
)

var (
	author   = flag.String("author", currentUserName(), "Set the author of the package when compressing")
	version  = flag.Int64("version", 1, "Archive version number to create it with")
	extract  = flag.String("e", "", "Extract the archive given")
	compress = flag.String("c", "", "Compress the given file/folder")
	list     = flag.String("l", "", "List the contents of the archive given")
	dstFile  = flag.String("f", "out.kar", "Destination file when compressing")
	dstDir   = flag.String("o", ".", "Destination directory when extracting")
	silent   = flag.Bool("s", false, "Silent")
)

var (
	errOneOperation = errors.New("only one operation at a time")
	errExists       = errors.New("destination exists, will not overwrite")
	errUnsafePath   = errors.New("archive entry escapes the destination")
)

func currentUserName() string {
	u, err := user.Current()
	if err != nil || u.Name == "" {
		return "unknown"
	}
	return u.Name
}

func main() {
	flag.Parse()
	if *silent {
		log.SetLevel(log.WarnLevel)
	}

	ops := 0
	for _, op := range []string{*extract, *compress, *list} {
		if op != "" {
			ops++
		}
	}

	var err error
	switch {
	case ops > 1:
		err = errOneOperation
	case *compress != "":
		err = compressFiles(*compress, *dstFile, kar.Header{
			Author:      *author,
			DateCreated: time.Now().Unix(),
			Version:     *version,
		})
	case *extract != "":
		err = extractFiles(*extract, *dstDir)
	case *list != "":
		err = listFiles(*list, os.Stdout)
	default:
		flag.PrintDefaults()
	}

	if err != nil {
		log.WithError(err).Error("kar failed")
		os.Exit(1)
	}
}

// compressFiles packs every regular file under root, named by its path
// relative to root.
func compressFiles(root, dst string, header kar.Header) error {
	if _, err := os.Stat(dst); err == nil {
		return errExists
	}

	builder, err := kar.NewBuilder(header)
	if err != nil {
		return err
	}
	defer builder.Close()

	if err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		name, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if name == "." {
			name = filepath.Base(path)
		}

		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()

		if err := builder.Add(filepath.ToSlash(name), f); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		log.WithField("file", name).Info("added")
		return nil
	}); err != nil {
		return err
	}

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	n, err := builder.WriteTo(out)
	if err != nil {
		out.Close()
		return err
	}
	log.WithFields(log.Fields{
		"archive": dst,
		"bytes":   n,
	}).Info("archive written")
	return out.Close()
}

func extractFiles(archivePath, dstDir string) error {
	archive, err := kar.OpenFile(archivePath)
	if err != nil {
		return err
	}
	defer archive.Close()

	for _, name := range archive.Names() {
		target, err := extractPath(dstDir, name)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		if _, err := os.Stat(target); err == nil {
			return fmt.Errorf("%s: %w", target, errExists)
		}
		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return err
		}

		data, err := archive.ReadAll(name)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		if err := os.WriteFile(target, data, 0644); err != nil {
			return err
		}
		log.WithField("file", target).Info("extracted")
	}
	return nil
}

// extractPath resolves an entry name below dstDir.
func extractPath(dstDir, name string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(name))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", errUnsafePath
	}
	return filepath.Join(dstDir, clean), nil
}

func listFiles(archivePath string, w io.Writer) error {
	archive, err := kar.OpenFile(archivePath)
	if err != nil {
		return err
	}
	defer archive.Close()

	header := archive.Header()
	fmt.Fprintf(w, "author: %s\nversion: %d\ncreated: %s\n", header.Author, header.Version,
		time.Unix(header.DateCreated, 0).UTC().Format(time.RFC3339))
	for _, name := range archive.Names() {
		entry, err := archive.Stat(name)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%10d %10d %s\n", entry.Size, entry.CompressedSize, name)
	}
	return nil
}
