package pyext

import (
	"archive/zip"
	"bufio"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
)

// WheelName is a parsed wheel filename:
// {distribution}-{version}(-{build})?-{python}-{abi}-{platform}.whl
type WheelName struct {
	Distribution string
	Version      string
	Build        string
	Tag          Tag
}

// ParseWheelName parses the base name of a wheel file.
func ParseWheelName(name string) (WheelName, error) {
	base := filepath.Base(name)
	if !strings.HasSuffix(base, ".whl") {
		return WheelName{}, fmt.Errorf("%s is not a wheel", base)
	}

	parts := strings.Split(strings.TrimSuffix(base, ".whl"), "-")
	var w WheelName
	switch len(parts) {
	case 5:
		w = WheelName{Distribution: parts[0], Version: parts[1]}
	case 6:
		w = WheelName{Distribution: parts[0], Version: parts[1], Build: parts[2]}
	default:
		return WheelName{}, fmt.Errorf("malformed wheel name %s", base)
	}

	n := len(parts)
	w.Tag = Tag{Python: parts[n-3], ABI: parts[n-2], Platform: parts[n-1]}
	return w, nil
}

func (w WheelName) String() string {
	fields := []string{w.Distribution, w.Version}
	if w.Build != "" {
		fields = append(fields, w.Build)
	}
	fields = append(fields, w.Tag.Python, w.Tag.ABI, w.Tag.Platform)
	return strings.Join(fields, "-") + ".whl"
}

// RetagWheel rewrites the tags of the wheel at wheelPath for host.
//
// The WHEEL metadata gets the rewritten Tag lines and Root-Is-Purelib set
// to false, RECORD is updated for the new WHEEL file, and the result is
// written beside the input under a filename carrying the new tag. The input
// wheel is removed once the new one is complete. When nothing changes the
// input path is returned and no file is written.
func RetagWheel(wheelPath string, host Host) (string, error) {
	name, err := ParseWheelName(wheelPath)
	if err != nil {
		return "", err
	}

	zr, err := zip.OpenReader(wheelPath)
	if err != nil {
		return "", fmt.Errorf("open wheel: %w", err)
	}
	defer zr.Close()

	distInfo := fmt.Sprintf("%s-%s.dist-info", name.Distribution, name.Version)
	wheelFile := path.Join(distInfo, "WHEEL")
	recordFile := path.Join(distInfo, "RECORD")

	original, err := readZipFile(&zr.Reader, wheelFile)
	if err != nil {
		return "", err
	}

	metadata, changed := rewriteWheelMetadata(original, host)
	newName := name
	newName.Tag = RewriteTag(name.Tag, host)
	if !changed && newName.Tag == name.Tag {
		return wheelPath, nil
	}

	outPath := filepath.Join(filepath.Dir(wheelPath), newName.String())
	tmpPath := outPath + ".tmp"
	if err := writeRetaggedWheel(&zr.Reader, tmpPath, wheelFile, recordFile, metadata); err != nil {
		_ = os.Remove(tmpPath)
		return "", err
	}
	// The input may be replaced in place; release it first.
	zr.Close()
	if err := os.Rename(tmpPath, outPath); err != nil {
		_ = os.Remove(tmpPath)
		return "", err
	}

	if outPath != wheelPath {
		if err := os.Remove(wheelPath); err != nil {
			return outPath, fmt.Errorf("remove original wheel: %w", err)
		}
	}
	return outPath, nil
}

// rewriteWheelMetadata applies RewriteTag to every Tag line and marks the
// wheel as platform-specific, adding Root-Is-Purelib when it is missing.
func rewriteWheelMetadata(data []byte, host Host) ([]byte, bool) {
	var out strings.Builder
	changed := false
	hasPurelib := false
	seenTags := make(map[string]bool)

	scanner := bufio.NewScanner(strings.NewReader(string(data)))
	for scanner.Scan() {
		line := scanner.Text()
		key, value, ok := strings.Cut(line, ":")
		value = strings.TrimSpace(value)

		switch {
		case ok && key == "Root-Is-Purelib":
			hasPurelib = true
			if value != "false" {
				changed = true
			}
			line = "Root-Is-Purelib: false"
		case ok && key == "Tag":
			if tag, err := ParseTag(value); err == nil {
				rewritten := RewriteTag(tag, host).String()
				if rewritten != value {
					changed = true
				}
				// Distinct input tags may collapse onto one.
				if seenTags[rewritten] {
					continue
				}
				seenTags[rewritten] = true
				line = "Tag: " + rewritten
			}
		}

		out.WriteString(line)
		out.WriteString("\n")
	}
	if !hasPurelib {
		out.WriteString("Root-Is-Purelib: false\n")
		changed = true
	}
	return []byte(out.String()), changed
}

func writeRetaggedWheel(zr *zip.Reader, outPath, wheelFile, recordFile string, metadata []byte) error {
	f, err := os.Create(outPath)
	if err != nil {
		return err
	}
	zw := zip.NewWriter(f)

	for _, entry := range zr.File {
		var data []byte
		switch entry.Name {
		case wheelFile:
			data = metadata
		case recordFile:
			record, err := readZipEntry(entry)
			if err != nil {
				zw.Close()
				f.Close()
				return err
			}
			data = updateRecord(record, wheelFile, metadata)
		default:
			if err := copyZipEntry(zw, entry); err != nil {
				zw.Close()
				f.Close()
				return err
			}
			continue
		}

		header := entry.FileHeader
		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:     header.Name,
			Method:   zip.Deflate,
			Modified: header.Modified,
		})
		if err == nil {
			_, err = w.Write(data)
		}
		if err != nil {
			zw.Close()
			f.Close()
			return err
		}
	}

	if err := zw.Close(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// updateRecord replaces the RECORD row of file with the hash and size of data.
func updateRecord(record []byte, file string, data []byte) []byte {
	sum := sha256.Sum256(data)
	row := fmt.Sprintf("%s,sha256=%s,%s", file,
		base64.RawURLEncoding.EncodeToString(sum[:]), strconv.Itoa(len(data)))

	lines := strings.Split(strings.TrimRight(string(record), "\n"), "\n")
	found := false
	for i, line := range lines {
		if strings.HasPrefix(line, file+",") {
			lines[i] = row
			found = true
		}
	}
	if !found {
		lines = append(lines, row)
	}
	return []byte(strings.Join(lines, "\n") + "\n")
}

func copyZipEntry(zw *zip.Writer, entry *zip.File) error {
	header := entry.FileHeader
	w, err := zw.CreateRaw(&header)
	if err != nil {
		return err
	}
	r, err := entry.OpenRaw()
	if err != nil {
		return err
	}
	_, err = io.Copy(w, r)
	return err
}

func readZipFile(zr *zip.Reader, name string) ([]byte, error) {
	for _, entry := range zr.File {
		if entry.Name == name {
			return readZipEntry(entry)
		}
	}
	return nil, fmt.Errorf("wheel has no %s", name)
}

func readZipEntry(entry *zip.File) ([]byte, error) {
	r, err := entry.Open()
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}
