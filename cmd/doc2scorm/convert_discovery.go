package main

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	doc2scorm "github.com/alnah/go-doc2scorm"
)

// packageExt is the extension of written packages.
const packageExt = ".zip"

// FileToConvert represents a single file to process.
type FileToConvert struct {
	InputPath  string
	OutputPath string
	Type       doc2scorm.FileType
}

// discoverFiles finds the documents to package. A file is taken as is,
// with forced overriding its extension; a directory is walked for every
// supported extension.
func discoverFiles(inputPath, outputDir string, forced doc2scorm.FileType) ([]FileToConvert, error) {
	info, err := os.Stat(inputPath)
	if err != nil {
		return nil, err
	}

	if !info.IsDir() {
		ft := forced
		if ft == "" {
			if ft, err = doc2scorm.FileTypeFromName(inputPath); err != nil {
				return nil, err
			}
		}
		return []FileToConvert{{
			InputPath:  inputPath,
			OutputPath: resolveOutputPath(inputPath, outputDir, ""),
			Type:       ft,
		}}, nil
	}

	if forced != "" {
		return nil, fmt.Errorf("%w: --type applies to a single file, not a directory", ErrUsage)
	}
	if strings.HasSuffix(outputDir, packageExt) {
		return nil, fmt.Errorf("%w: output %s must be a directory when converting a directory", ErrUsage, outputDir)
	}

	var files []FileToConvert
	err = filepath.WalkDir(inputPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("scanning %s: %w", path, err)
		}
		if d.IsDir() {
			if path != inputPath && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		ft, err := doc2scorm.FileTypeFromName(path)
		if err != nil {
			return nil
		}
		files = append(files, FileToConvert{
			InputPath:  path,
			OutputPath: resolveOutputPath(path, outputDir, inputPath),
			Type:       ft,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	disambiguate(files)
	return files, nil
}

// resolveOutputPath determines the package path for an input file.
func resolveOutputPath(inputPath, outputDir, baseInputDir string) string {
	ext := filepath.Ext(inputPath)
	base := strings.TrimSuffix(filepath.Base(inputPath), ext)

	if outputDir == "" {
		return filepath.Join(filepath.Dir(inputPath), base+packageExt)
	}

	if strings.HasSuffix(outputDir, packageExt) {
		return outputDir
	}

	if baseInputDir != "" {
		relPath, err := filepath.Rel(baseInputDir, inputPath)
		if err == nil {
			return filepath.Join(outputDir, filepath.Dir(relPath), base+packageExt)
		}
	}

	return filepath.Join(outputDir, base+packageExt)
}

// disambiguate renames packages whose sources share a base name, such as
// intro.html and intro.pdf, to intro-html.zip and intro-pdf.zip.
func disambiguate(files []FileToConvert) {
	seen := make(map[string]int, len(files))
	for _, f := range files {
		seen[f.OutputPath]++
	}
	for i, f := range files {
		if seen[f.OutputPath] < 2 {
			continue
		}
		ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(f.InputPath)), ".")
		files[i].OutputPath = strings.TrimSuffix(f.OutputPath, packageExt) + "-" + ext + packageExt
	}
}
