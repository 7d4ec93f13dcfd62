// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"sync"
	"time"

	"github.com/devblok/torero/utility/kar"
	log "github.com/sirupsen/logrus"
)

func init() {
	currentUserName = "unknown"
	if u, err := user.Current(); err == nil {
		currentUserName = u.Name
	}
}

var (
	currentUserName string
	author          = flag.String("author", "", "Set the author of the package when compressing")
	version         = flag.Int64("version", 1, "Archive version number to create it with")
	extract         = flag.String("e", "", "Extract the archive given")
	compress        = flag.String("c", "", "Compress the given file/folder")
	list            = flag.String("l", "", "List the files of the archive given")
	dstFile         = flag.String("f", "out.kar", "Destination file, or folder when extracting")
	silent          = flag.Bool("s", false, "Silent")
)

func main() {
	flag.Parse()
	if *silent {
		log.SetLevel(log.WarnLevel)
	}

	var ops int
	for _, op := range []string{*extract, *compress, *list} {
		if op != "" {
			ops++
		}
	}

	var err error
	switch {
	case ops > 1:
		err = errors.New("only one operation at a time")
	case *compress != "":
		err = compressFiles(*compress, *dstFile)
	case *extract != "":
		err = extractFiles(*extract, *dstFile)
	case *list != "":
		err = listFiles(*list)
	default:
		flag.PrintDefaults()
	}
	if err != nil {
		log.Fatal(err)
	}
}

func compressFiles(src, dstPath string) error {
	if _, err := os.Stat(dstPath); err == nil {
		return errors.New("destination file exists, will not overwrite")
	}

	var filesToCompress []string
	if err := filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		filesToCompress = append(filesToCompress, path)
		return nil
	}); err != nil {
		return err
	}

	name := *author
	if name == "" {
		name = currentUserName
	}
	karBuilder, err := kar.NewBuilder(kar.Header{
		Author:      name,
		DateCreated: time.Now().Unix(),
		Version:     *version,
	})
	if err != nil {
		return err
	}
	defer karBuilder.Close()

	var (
		wg       sync.WaitGroup
		mutex    sync.Mutex
		firstErr error
	)
	for _, ftc := range filesToCompress {
		wg.Add(1)
		go func(path string) {
			defer wg.Done()
			if err := addFile(karBuilder, src, path); err != nil {
				mutex.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mutex.Unlock()
			}
		}(ftc)
	}
	wg.Wait()
	if firstErr != nil {
		return firstErr
	}

	dst, err := os.Create(dstPath)
	if err != nil {
		return err
	}
	written, err := karBuilder.WriteTo(dst)
	if err != nil {
		dst.Close()
		return err
	}
	log.WithFields(log.Fields{
		"files": karBuilder.Len(),
		"bytes": written,
	}).Info("archive written to ", dstPath)
	return dst.Close()
}

// addFile stores path under its slash separated name relative to root.
func addFile(b *kar.Builder, root, path string) error {
	name, err := filepath.Rel(root, path)
	if err != nil || name == "." {
		name = filepath.Base(path)
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := b.Add(filepath.ToSlash(name), f); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	log.Debug("added ", name)
	return nil
}

func extractFiles(archivePath, dstDir string) error {
	archive, err := kar.OpenFile(archivePath)
	if err != nil {
		return err
	}
	defer archive.Close()

	for _, name := range archive.Names() {
		data, err := archive.ReadAll(name)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		target := filepath.Join(dstDir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return err
		}
		if err := os.WriteFile(target, data, 0644); err != nil {
			return err
		}
		log.Debug("extracted ", target)
	}
	log.WithField("files", len(archive.Names())).Info("archive extracted to ", dstDir)
	return nil
}

func listFiles(archivePath string) error {
	archive, err := kar.OpenFile(archivePath)
	if err != nil {
		return err
	}
	defer archive.Close()

	header := archive.Header()
	fmt.Printf("author: %s, version: %d, created: %s\n",
		header.Author, header.Version, time.Unix(header.DateCreated, 0).Format(time.RFC3339))
	for _, entry := range header.Index {
		fmt.Printf("%10d %10d %s\n", entry.Size, entry.CompressedSize, entry.Name)
	}
	return nil
}
