// Copyright (C) 2020 Markus L. Noga
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


package pix

import (
	"bufio"
	"bytes"
	"fmt"
	"image/jpeg"
	"io"
	"os"
)

// Default JPEG quality for full resolution output
const DefaultJPEGQuality = 92

// Write the buffer to a JPEG file with the given quality in [1,100]
func (b *Buffer) WriteJPGToFile(fileName string, quality int) error {
	file, err:=os.Create(fileName)
	if err!=nil { return err }
	defer file.Close()

	writer:=bufio.NewWriter(file)
	if err=b.WriteJPG(writer, quality); err!=nil { return err }
	return writer.Flush()
}

// Write the buffer as JPEG with the given quality in [1,100]. Alpha is dropped
func (b *Buffer) WriteJPG(writer io.Writer, quality int) error {
	if err:=b.Validate(); err!=nil { return fmt.Errorf("%w: %s", ErrEncode, err.Error()) }
	if err:=jpeg.Encode(writer, b.ToNRGBA(), &jpeg.Options{Quality: ClampInt(quality, 1, 100)}); err!=nil {
		return fmt.Errorf("%w: %s", ErrEncode, err.Error())
	}
	return nil
}

// Encodes the buffer as JPEG with the given quality in [1,100]
func (b *Buffer) EncodeJPG(quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err:=b.WriteJPG(&buf, quality); err!=nil { return nil, err }
	return buf.Bytes(), nil
}
