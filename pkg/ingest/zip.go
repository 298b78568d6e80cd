// Copyright ReliefWeb Ingest Authors
// SPDX-License-Identifier: Apache-2.0

package ingest

import (
	"archive/zip"
	"bytes"
	"fmt"
)

type archiveEntry struct {
	Name    string
	Content []byte
}

// buildZip packages the entries into a deflate-compressed ZIP.
func buildZip(entries []archiveEntry) ([]byte, error) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for _, entry := range entries {
		fw, err := w.Create(entry.Name)
		if err != nil {
			return nil, fmt.Errorf("add %s to archive: %w", entry.Name, err)
		}
		if _, err := fw.Write(entry.Content); err != nil {
			return nil, fmt.Errorf("write %s to archive: %w", entry.Name, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("finalize archive: %w", err)
	}
	return buf.Bytes(), nil
}
