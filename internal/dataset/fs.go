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
	"fmt"
	"os/user"
	"strings"
)

// Role distinguishes whether an Fs is being considered as the source or the
// target side of a replication.
type Role int

const (
	RoleSource Role = iota
	RoleTarget
)

// Fs names a ZFS dataset, optionally qualified by a remote host, and
// (when known) the snapshot it was cloned from.
type Fs struct {
	Host   string // "" means local
	Path   string // pool/component/component, no leading/trailing slash
	Role   Role
	Origin string // "" means not a clone; otherwise "dataset@snapshot"
}

// splitHostAtColon finds "host:" before any '/', matching syncoid-style
// host:dataset addressing without trying to disambiguate a ':' that is
// actually part of a local pool name.
func splitHostAtColon(s string) (host, rest string, ok bool) {
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '/':
			return "", "", false
		case ':':
			return s[:i], s[i+1:], true
		}
	}
	return "", "", false
}

// NewFs builds an Fs from a dataset path argument and an optionally
// given host. There are three cases:
//  1. host is non-nil and non-empty: it is used as-is, fs is taken
//     verbatim.
//  2. host is non-nil but empty: fs is still taken verbatim, forcing a
//     local dataset even if it contains a ':'.
//  3. host is nil: fs is split at a ':' before any '/', if one is
//     present, into host:dataset (host:pool, user@host:pool, or
//     user@host:pool/fs); otherwise fs names a local dataset.
//
// Unlike syncoid, chithi never guesses whether a ':' belongs to a local
// pool name — if a pool name contains ':', the host must be passed
// explicitly, even if only to force it empty.
func NewFs(host *string, fs string, role Role) Fs {
	if host != nil {
		if *host == "" {
			return Fs{Path: fs, Role: role}
		}
		return Fs{Host: *host, Path: fs, Role: role}
	}
	if h, rest, ok := splitHostAtColon(fs); ok {
		return Fs{Host: h, Path: rest, Role: role}
	}
	return Fs{Path: fs, Role: role}
}

// ParseFs is NewFs with no separately known host: fs is split at a
// host:dataset ':' when one is present before any '/', otherwise it
// names a local dataset.
func ParseFs(fs string, role Role) Fs {
	return NewFs(nil, fs, role)
}

// NewChild derives a sibling Fs under the same host with a new path and
// clone origin. origin of "-" (the zfs-list sentinel for "no origin")
// clears the clone origin.
func (f Fs) NewChild(path, origin string) Fs {
	child := Fs{Host: f.Host, Path: path, Role: f.Role}
	if origin != "-" {
		child.Origin = origin
	}
	return child
}

// ChildFromSource rebases a discovered descendant of source (found while
// walking source's tree) onto f (the corresponding target-side parent),
// rewriting its clone origin the same way when cloneHandling is set.
func (f Fs) ChildFromSource(source, child Fs, cloneHandling bool) (Fs, error) {
	suffix, ok := strings.CutPrefix(child.Path, source.Path)
	if !ok {
		return Fs{}, fmt.Errorf("child %s did not start with source %s", child.Path, source.Path)
	}
	targetPath := f.Path + suffix

	targetOrigin := "-"
	if cloneHandling && child.Origin != "" {
		if originSuffix, ok := strings.CutPrefix(child.Origin, source.Path); ok {
			targetOrigin = f.Path + originSuffix
		}
	}
	return f.NewChild(targetPath, targetOrigin), nil
}

// OriginDataset returns the dataset portion of Origin ("dataset" from
// "dataset@snapshot"), or "" if this Fs is not a clone.
func (f Fs) OriginDataset() string {
	if f.Origin == "" {
		return ""
	}
	dataset, _, _ := strings.Cut(f.Origin, "@")
	return dataset
}

// StripParentFrom returns child with f's path (and any single separating
// slash) removed from the front, or ("", false) if child does not have f
// as a prefix.
func (f Fs) StripParentFrom(child string) (string, bool) {
	rest, ok := strings.CutPrefix(child, f.Path)
	if !ok {
		return "", false
	}
	return strings.TrimPrefix(rest, "/"), true
}

func (f Fs) String() string {
	if f.Host != "" {
		return fmt.Sprintf("%s on %s", f.Path, f.Host)
	}
	return f.Path
}

// GetIsRoots decides, for a source and target host argument, whether
// chithi should assume operations against that host run as root: an
// explicit "user@host" form decides it from the username (unless
// bypassRootCheck forces true), and an unqualified or absent host falls
// back to whether the local process itself runs as root.
func GetIsRoots(source, target string, bypassRootCheck bool) (sourceIsRoot, targetIsRoot bool) {
	isRoot := func(host string) (bool, bool) {
		user, _, ok := strings.Cut(host, "@")
		if !ok {
			return false, false
		}
		return bypassRootCheck || user == "root", true
	}

	sRoot, sKnown := isRoot(source)
	tRoot, tKnown := isRoot(target)
	if sKnown && tKnown {
		return sRoot, tRoot
	}

	localIsRoot := localProcessIsRoot()
	if !sKnown {
		sRoot = localIsRoot
	}
	if !tKnown {
		tRoot = localIsRoot
	}
	return sRoot, tRoot
}

func localProcessIsRoot() bool {
	u, err := user.Current()
	if err != nil {
		return false
	}
	return u.Uid == "0"
}
