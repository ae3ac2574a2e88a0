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


package internal

import (
	"bufio"
	"io"
	"os"
	"sync"
)

// Log writer. Writes to a primary writer, usually stdout, and optionally to a file.
// Does not add prefixes, or force newlines. Safe for concurrent use
type TeeLog struct {
	mutex      sync.Mutex
	out        io.Writer
	logFile   *bufio.Writer
	logFileOS *os.File
}

// Creates a log writing to out, and also to the named file if fileName is non-empty
func NewTeeLog(out io.Writer, fileName string) (l *TeeLog, err error) {
	l=&TeeLog{out: out}
	if fileName=="" { return l, nil }
	l.logFileOS, err=os.OpenFile(fileName, os.O_CREATE | os.O_TRUNC | os.O_WRONLY, 0666)
	if err!=nil { return nil, err }
	l.logFile=bufio.NewWriter(l.logFileOS)
	return l, nil
}

func (l *TeeLog) Write(p []byte) (n int, err error) {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	n, err=l.out.Write(p)
	if err!=nil || l.logFile==nil { return n, err }
	return l.logFile.Write(p)
}

// Flushes buffered output to the log file
func (l *TeeLog) Sync() error {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	if l.logFile==nil { return nil }
	if err:=l.logFile.Flush(); err!=nil { return err }
	return l.logFileOS.Sync()
}

// Flushes and closes the log file. Further output goes to the primary writer only
func (l *TeeLog) Close() error {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	if l.logFile==nil { return nil }
	err:=l.logFile.Flush()
	if cerr:=l.logFileOS.Close(); err==nil { err=cerr }
	l.logFile, l.logFileOS=nil, nil
	return err
}
