/*
 * Copyright 2024-2025 Raamsri Kumar <raam@tinkershack.in>
 * Copyright 2024-2025 The StrataSTOR Authors and Contributors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     https://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package pidlock provides the pid-file advisory lock used to keep two
// instances of the same task or job from running concurrently.
package pidlock

import (
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"

	"github.com/ifazk/chithi/internal/errors"
)

// Lock holds an open, locked pid file. The underlying advisory lock is
// released when the process exits or Release is called, whichever comes
// first.
type Lock struct {
	f *os.File
}

// Acquire opens (creating if needed, without truncating) the file at
// path, takes a non-blocking exclusive advisory lock on it, then
// truncates it and writes the current process id in ASCII. Contention
// surfaces a WouldBlock-kind error with the message "another instance
// seems to be running".
func Acquire(path string) (*Lock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, errors.Wrap(err, errors.PidLockIOFailed)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, errors.Wrap(err, errors.PidLockIOFailed)
	}

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		if err == unix.EWOULDBLOCK {
			return nil, errors.New(errors.PidLockContended, "another instance seems to be running")
		}
		return nil, errors.Wrap(err, errors.PidLockIOFailed)
	}

	if err := f.Truncate(0); err != nil {
		unix.Flock(int(f.Fd()), unix.LOCK_UN)
		f.Close()
		return nil, errors.Wrap(err, errors.PidLockIOFailed)
	}
	if _, err := f.WriteString(fmt.Sprintf("%d", os.Getpid())); err != nil {
		unix.Flock(int(f.Fd()), unix.LOCK_UN)
		f.Close()
		return nil, errors.Wrap(err, errors.PidLockIOFailed)
	}

	return &Lock{f: f}, nil
}

// Release truncates the pid file to zero length and closes it; the
// advisory lock is dropped as soon as the descriptor closes.
func (l *Lock) Release() error {
	if l == nil || l.f == nil {
		return nil
	}
	_ = l.f.Truncate(0)
	_ = unix.Flock(int(l.f.Fd()), unix.LOCK_UN)
	err := l.f.Close()
	l.f = nil
	if err != nil {
		return errors.Wrap(err, errors.PidLockIOFailed)
	}
	return nil
}
