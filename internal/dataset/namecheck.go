/*
 * Copyright 2024 Raamsri Kumar <raam@tinkershack.in> and The StrataSTOR Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package dataset

import (
	"github.com/ifazk/chithi/internal/errors"
)

// Adapted from ZFS name validation functions from OpenZFS: zfs_namecheck.c,
// trimmed to the entity/snapshot/depth checks chithi actually needs to
// validate names and origins discovered from `zfs list` output before they
// are trusted as Fs values.

const (
	MaxDatasetNameLen = 256 // ZFS_MAX_DATASET_NAME_LEN
	MaxDatasetNesting = 50  // zfs_max_dataset_nesting default value
)

type DatasetType uint8

const (
	TypeInvalid    DatasetType = 0
	TypeFilesystem DatasetType = 1 << iota
	TypeSnapshot
	TypeBookmark
)

// DatasetComponent holds the parsed pieces of a dataset name.
type DatasetComponent struct {
	Base     string
	Snapshot string
	Bookmark string
	Type     DatasetType
}

func isValidChar(c rune) bool {
	return (c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9') ||
		c == '-' || c == '_' || c == '.' || c == ':' || c == ' '
}

func GetDatasetDepth(path string) int {
	depth := 0
	for i := 0; i < len(path); i++ {
		if path[i] == '/' {
			depth++
		}
		if path[i] == '@' || path[i] == '#' {
			break
		}
	}
	return depth
}

func invalid(details string) error {
	return errors.New(errors.DatasetInvalidName, details)
}

// EntityNameCheck validates a full dataset/snapshot/bookmark path.
func EntityNameCheck(path string) error {
	if len(path) >= MaxDatasetNameLen {
		return invalid("name too long: " + path)
	}
	if len(path) == 0 {
		return invalid("name empty")
	}
	if path[0] == '/' {
		return invalid("name cannot start with '/': " + path)
	}
	if path[len(path)-1] == '/' {
		return invalid("trailing slash: " + path)
	}

	foundDelim := false
	start := 0

	for start < len(path) {
		end := start
		for end < len(path) && path[end] != '/' && path[end] != '@' && path[end] != '#' {
			end++
		}

		if start == end {
			return invalid("invalid/empty component after '/', '@' or '#': " + path)
		}

		component := path[start:end]
		for _, c := range component {
			if !isValidChar(c) && c != '%' {
				return invalid("invalid character: " + path)
			}
		}

		if component == "." {
			return invalid("self reference: " + path)
		}
		if component == ".." {
			return invalid("parent reference: " + path)
		}

		if end == len(path) {
			break
		}

		if path[end] == '@' || path[end] == '#' {
			if foundDelim {
				return invalid("multiple delimiters: " + path)
			}
			foundDelim = true
			if end+1 >= len(path) {
				return invalid("empty component after delimiter: " + path)
			}
		}

		if path[end] == '/' && foundDelim {
			return invalid("slash after delimiter: " + path)
		}

		start = end + 1
	}

	return DatasetNestCheck(path)
}

// SnapshotNameCheck validates snapshot names (must contain '@').
func SnapshotNameCheck(path string) error {
	if err := EntityNameCheck(path); err != nil {
		return err
	}
	for i := 0; i < len(path); i++ {
		if path[i] == '@' {
			return nil
		}
	}
	return invalid("snapshot name must contain '@'")
}

// DatasetNestCheck validates dataset nesting depth.
func DatasetNestCheck(path string) error {
	if GetDatasetDepth(path) >= MaxDatasetNesting {
		return invalid("dataset nesting too deep")
	}
	return nil
}

// ParseDatasetName validates and splits a dataset name into its components.
func ParseDatasetName(name string) (*DatasetComponent, error) {
	if err := EntityNameCheck(name); err != nil {
		return nil, err
	}

	comp := &DatasetComponent{Type: TypeInvalid}

	delimIdx := -1
	var delim rune
	for i, c := range name {
		if c == '@' || c == '#' {
			delimIdx = i
			delim = c
			break
		}
	}

	if delimIdx == -1 {
		comp.Base = name
		comp.Type = TypeFilesystem
		return comp, nil
	}

	comp.Base = name[:delimIdx]
	switch delim {
	case '@':
		comp.Snapshot = name[delimIdx+1:]
		comp.Type = TypeSnapshot
	case '#':
		comp.Bookmark = name[delimIdx+1:]
		comp.Type = TypeBookmark
	}

	return comp, nil
}

func (dc *DatasetComponent) String() string {
	switch {
	case dc.Snapshot != "":
		return dc.Base + "@" + dc.Snapshot
	case dc.Bookmark != "":
		return dc.Base + "#" + dc.Bookmark
	default:
		return dc.Base
	}
}
