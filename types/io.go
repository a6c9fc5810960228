package types

import (
	"bufio"
	"io"
	"os"

	"github.com/wudi/gscript/errs"
	"github.com/wudi/gscript/values"
)

// FileObject wraps an open *os.File (spec §3: host's os.open returns one of
// these). A buffered reader backs read/readLine so repeated line reads
// don't each pay a syscall. write and tell operate on the underlying file
// directly, so after a buffered read they see the file position past the
// data already buffered; seek resets the buffer, so reads after a seek
// start at the new position.
type FileObject struct {
	id     int64
	Path   string
	f      *os.File
	reader *bufio.Reader
	closed bool
}

func NewFileObject(id int64, path string, f *os.File) *FileObject {
	return &FileObject{id: id, Path: path, f: f, reader: bufio.NewReader(f)}
}

func (o *FileObject) ObjectID() int64 { return o.id }
func (o *FileObject) Type() *Type     { return FileType }

var FileType = buildFileType()

func buildFileType() *Type {
	t := NewType("File")

	t.DefineMethod("read", 1, func(self Object, args []values.Value, rt Runtime) (values.Value, error) {
		fo := self.(*FileObject)
		if fo.closed {
			return values.Nil, errs.NewRuntime(errs.ErrNilReference, "File.read: file is closed")
		}
		n, err := intArg("File.read", args[0])
		if err != nil {
			return values.Nil, err
		}
		if n < 0 {
			data, rerr := io.ReadAll(fo.reader)
			if rerr != nil && rerr != io.EOF {
				return values.Nil, errs.NewRuntime(errs.ErrNilReference, "File.read: %v", rerr)
			}
			return rt.NewString(string(data)), nil
		}
		buf := make([]byte, n)
		read, rerr := io.ReadFull(fo.reader, buf)
		if rerr != nil && rerr != io.ErrUnexpectedEOF && rerr != io.EOF {
			return values.Nil, errs.NewRuntime(errs.ErrNilReference, "File.read: %v", rerr)
		}
		return rt.NewString(string(buf[:read])), nil
	})

	t.DefineMethod("readLine", 0, func(self Object, args []values.Value, rt Runtime) (values.Value, error) {
		fo := self.(*FileObject)
		if fo.closed {
			return values.Nil, errs.NewRuntime(errs.ErrNilReference, "File.readLine: file is closed")
		}
		line, err := fo.reader.ReadString('\n')
		if err != nil && err != io.EOF {
			return values.Nil, errs.NewRuntime(errs.ErrNilReference, "File.readLine: %v", err)
		}
		if err == io.EOF && line == "" {
			return values.Nil, nil
		}
		for len(line) > 0 && (line[len(line)-1] == '\n' || line[len(line)-1] == '\r') {
			line = line[:len(line)-1]
		}
		return rt.NewString(line), nil
	})

	t.DefineMethod("write", 1, func(self Object, args []values.Value, rt Runtime) (values.Value, error) {
		fo := self.(*FileObject)
		if fo.closed {
			return values.Nil, errs.NewRuntime(errs.ErrNilReference, "File.write: file is closed")
		}
		data, err := strArg("File.write", args[0], rt)
		if err != nil {
			return values.Nil, err
		}
		n, werr := fo.f.WriteString(data)
		if werr != nil {
			return values.Nil, errs.NewRuntime(errs.ErrNilReference, "File.write: %v", werr)
		}
		return values.Int(int64(n)), nil
	})

	t.DefineMethod("flush", 0, func(self Object, args []values.Value, rt Runtime) (values.Value, error) {
		fo := self.(*FileObject)
		if fo.closed {
			return values.Nil, errs.NewRuntime(errs.ErrNilReference, "File.flush: file is closed")
		}
		if err := fo.f.Sync(); err != nil {
			return values.Nil, errs.NewRuntime(errs.ErrNilReference, "File.flush: %v", err)
		}
		return values.Nil, nil
	})

	t.DefineMethod("seek", 2, func(self Object, args []values.Value, rt Runtime) (values.Value, error) {
		fo := self.(*FileObject)
		if fo.closed {
			return values.Nil, errs.NewRuntime(errs.ErrNilReference, "File.seek: file is closed")
		}
		offset, err := intArg("File.seek", args[0])
		if err != nil {
			return values.Nil, err
		}
		whence, err := intArg("File.seek", args[1])
		if err != nil {
			return values.Nil, err
		}
		pos, serr := fo.f.Seek(offset, int(whence))
		if serr != nil {
			return values.Nil, errs.NewRuntime(errs.ErrOutOfRange, "File.seek: %v", serr)
		}
		fo.reader.Reset(fo.f)
		return values.Int(pos), nil
	})

	t.DefineMethod("tell", 0, func(self Object, args []values.Value, rt Runtime) (values.Value, error) {
		fo := self.(*FileObject)
		pos, err := fo.f.Seek(0, io.SeekCurrent)
		if err != nil {
			return values.Nil, errs.NewRuntime(errs.ErrNilReference, "File.tell: %v", err)
		}
		return values.Int(pos), nil
	})

	t.DefineMethod("size", 0, func(self Object, args []values.Value, rt Runtime) (values.Value, error) {
		fo := self.(*FileObject)
		info, err := fo.f.Stat()
		if err != nil {
			return values.Nil, errs.NewRuntime(errs.ErrNilReference, "File.size: %v", err)
		}
		return values.Int(info.Size()), nil
	})

	t.DefineMethod("isOpen", 0, func(self Object, args []values.Value, rt Runtime) (values.Value, error) {
		if self.(*FileObject).closed {
			return values.Int(0), nil
		}
		return values.Int(1), nil
	})

	t.DefineMethod("close", 0, func(self Object, args []values.Value, rt Runtime) (values.Value, error) {
		fo := self.(*FileObject)
		if fo.closed {
			return values.Nil, nil
		}
		fo.closed = true
		if err := fo.f.Close(); err != nil {
			return values.Nil, errs.NewRuntime(errs.ErrNilReference, "File.close: %v", err)
		}
		return values.Nil, nil
	})

	t.Str = func(self Object, strv ValueStrInvoker) (string, error) {
		return "<file " + self.(*FileObject).Path + ">", nil
	}
	return t
}

// PathObject is a pure string-manipulation wrapper over a filesystem path
// (spec §3); unlike FileObject it holds no open descriptor, so its methods
// that touch the filesystem (exists/isFile/isDirectory/fileSize/
// lastModified) stat fresh each call.
type PathObject struct {
	id    int64
	Value string
}

func NewPathObject(id int64, path string) *PathObject {
	return &PathObject{id: id, Value: path}
}

func (o *PathObject) ObjectID() int64 { return o.id }
func (o *PathObject) Type() *Type     { return PathType }

var PathType = buildPathType()

func buildPathType() *Type {
	t := NewType("Path")

	t.DefineMethod("extension", 0, func(self Object, args []values.Value, rt Runtime) (values.Value, error) {
		p := self.(*PathObject).Value
		dot := -1
		for i := len(p) - 1; i >= 0 && p[i] != '/'; i-- {
			if p[i] == '.' {
				dot = i
				break
			}
		}
		if dot < 0 {
			return rt.NewString(""), nil
		}
		return rt.NewString(p[dot+1:]), nil
	})

	t.DefineMethod("filename", 0, func(self Object, args []values.Value, rt Runtime) (values.Value, error) {
		p := self.(*PathObject).Value
		slash := -1
		for i := len(p) - 1; i >= 0; i-- {
			if p[i] == '/' {
				slash = i
				break
			}
		}
		return rt.NewString(p[slash+1:]), nil
	})

	t.DefineMethod("stem", 0, func(self Object, args []values.Value, rt Runtime) (values.Value, error) {
		p := self.(*PathObject).Value
		slash := -1
		for i := len(p) - 1; i >= 0; i-- {
			if p[i] == '/' {
				slash = i
				break
			}
		}
		name := p[slash+1:]
		dot := -1
		for i := len(name) - 1; i >= 0; i-- {
			if name[i] == '.' {
				dot = i
				break
			}
		}
		if dot <= 0 {
			return rt.NewString(name), nil
		}
		return rt.NewString(name[:dot]), nil
	})

	t.DefineMethod("normalize", 0, func(self Object, args []values.Value, rt Runtime) (values.Value, error) {
		return rt.NewString(normalizeSlashes(self.(*PathObject).Value)), nil
	})

	t.DefineMethod("exists", 0, func(self Object, args []values.Value, rt Runtime) (values.Value, error) {
		_, err := os.Stat(self.(*PathObject).Value)
		if err != nil {
			return values.Int(0), nil
		}
		return values.Int(1), nil
	})

	t.DefineMethod("isFile", 0, func(self Object, args []values.Value, rt Runtime) (values.Value, error) {
		info, err := os.Stat(self.(*PathObject).Value)
		if err != nil || info.IsDir() {
			return values.Int(0), nil
		}
		return values.Int(1), nil
	})

	t.DefineMethod("isDirectory", 0, func(self Object, args []values.Value, rt Runtime) (values.Value, error) {
		info, err := os.Stat(self.(*PathObject).Value)
		if err != nil || !info.IsDir() {
			return values.Int(0), nil
		}
		return values.Int(1), nil
	})

	t.DefineMethod("fileSize", 0, func(self Object, args []values.Value, rt Runtime) (values.Value, error) {
		info, err := os.Stat(self.(*PathObject).Value)
		if err != nil {
			return values.Nil, errs.NewRuntime(errs.ErrNilReference, "Path.fileSize: %v", err)
		}
		return values.Int(info.Size()), nil
	})

	t.DefineMethod("lastModified", 0, func(self Object, args []values.Value, rt Runtime) (values.Value, error) {
		info, err := os.Stat(self.(*PathObject).Value)
		if err != nil {
			return values.Nil, errs.NewRuntime(errs.ErrNilReference, "Path.lastModified: %v", err)
		}
		return values.Int(info.ModTime().Unix()), nil
	})

	t.DefineMember("length", func(self Object) (values.Value, error) {
		return values.Int(int64(len(self.(*PathObject).Value))), nil
	}, nil)

	t.Str = func(self Object, strv ValueStrInvoker) (string, error) {
		return self.(*PathObject).Value, nil
	}
	return t
}

func normalizeSlashes(p string) string {
	out := make([]byte, 0, len(p))
	var lastSlash bool
	for i := 0; i < len(p); i++ {
		c := p[i]
		if c == '/' {
			if lastSlash {
				continue
			}
			lastSlash = true
		} else {
			lastSlash = false
		}
		out = append(out, c)
	}
	if len(out) > 1 && out[len(out)-1] == '/' {
		out = out[:len(out)-1]
	}
	return string(out)
}
