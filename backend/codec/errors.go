// Copyright (C) 2025 efchat.net <tj@efchat.net>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package codec

import "errors"

var (
	ErrShortBuffer    = errors.New("codec: short buffer")
	ErrTrailingBytes  = errors.New("codec: trailing bytes")
	ErrUnknownTag     = errors.New("codec: unknown record tag")
	ErrUnknownSchema  = errors.New("codec: unknown schema version")
	ErrWrongKind      = errors.New("codec: unexpected record kind")
	ErrInvalidEnum    = errors.New("codec: invalid enum value")
	ErrLengthMismatch = errors.New("codec: content length does not match messages")
	ErrUnsupported    = errors.New("codec: field not supported by schema")
	ErrTooLarge       = errors.New("codec: value exceeds u32 length")
)
