// Package shell is the line-oriented command interpreter that bareOS runs
// as a kernel thread.
package shell

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/mit-pdos/go-bareos/fs"
	"github.com/mit-pdos/go-bareos/kernel"
	"github.com/mit-pdos/go-bareos/util"
)

const Prompt = "bareOS$ "

// maxLine bounds a line, like the fixed input buffer of a console driver.
const maxLine = 1023

type Shell struct {
	in  *bufio.Reader
	out io.Writer
	ret byte
}

func New(in io.Reader, out io.Writer) *Shell {
	return &Shell{
		in:  bufio.NewReader(in),
		out: out,
	}
}

// readLine returns the next line without its terminator. Backspace erases
// the previous character.
func (sh *Shell) readLine() (string, error) {
	var line []byte
	for {
		c, err := sh.in.ReadByte()
		if err != nil {
			if err == io.EOF && len(line) > 0 {
				return string(line), nil
			}
			return "", err
		}
		switch c {
		case '\n', '\r':
			return string(line), nil
		case '\b', 0x7f:
			if len(line) > 0 {
				line = line[:len(line)-1]
			}
		default:
			line = append(line, c)
			if len(line) >= maxLine {
				return string(line), nil
			}
		}
	}
}

// expand replaces every "$?" with the last command's status.
func (sh *Shell) expand(line string) string {
	return strings.ReplaceAll(line, "$?", strconv.Itoa(int(sh.ret)))
}

// spawn runs entry as a child thread with arg and waits for it.
func (sh *Shell) spawn(k *kernel.Kernel, entry kernel.Entry, arg string) byte {
	tid, err := k.Create(entry, []byte(arg))
	if err != nil {
		fmt.Fprintf(sh.out, "error: %v\n", err)
		return 1
	}
	if err := k.Resume(tid); err != nil {
		fmt.Fprintf(sh.out, "error: %v\n", err)
		return 1
	}
	ret, err := k.Join(tid)
	if err != nil {
		fmt.Fprintf(sh.out, "error: %v\n", err)
		return 1
	}
	return ret
}

// Main is the shell's thread body. It returns the last status when input
// runs out or on "exit".
func (sh *Shell) Main(k *kernel.Kernel, arg []byte) byte {
	for {
		fmt.Fprint(sh.out, Prompt)
		line, err := sh.readLine()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				util.DPrintf(1, "shell: %v\n", err)
			}
			return sh.ret
		}
		line = sh.expand(line)
		cmd, rest, _ := strings.Cut(line, " ")
		switch strings.ToLower(cmd) {
		case "":
		case "hello":
			sh.ret = sh.spawn(k, sh.hello, line)
		case "echo":
			sh.ret = sh.spawn(k, sh.echo, line)
		case "exit":
			return sh.ret
		default:
			builtin, ok := builtins[cmd]
			if !ok {
				fmt.Fprintln(sh.out, "Unknown command")
				continue
			}
			sh.ret = sh.status(builtin(sh, k, strings.Fields(rest)))
		}
	}
}

func (sh *Shell) status(err error) byte {
	if err != nil {
		fmt.Fprintf(sh.out, "error: %v\n", err)
		return 1
	}
	return 0
}

// hello greets its argument. arg is the whole command line.
func (sh *Shell) hello(k *kernel.Kernel, arg []byte) byte {
	_, text, _ := strings.Cut(string(arg), " ")
	if text == "" {
		fmt.Fprintln(sh.out, "Error - bad argument")
		return 1
	}
	fmt.Fprintf(sh.out, "Hello, %s!\n", text)
	return 0
}

// echo prints its argument. Without one it echoes input lines until an
// empty line and returns the number of characters read.
func (sh *Shell) echo(k *kernel.Kernel, arg []byte) byte {
	_, text, _ := strings.Cut(string(arg), " ")
	if text != "" {
		fmt.Fprintln(sh.out, text)
		return 0
	}
	var count int
	for {
		line, err := sh.readLine()
		if err != nil || line == "" {
			return byte(count)
		}
		count += len(line)
		fmt.Fprintln(sh.out, line)
	}
}

type builtin func(sh *Shell, k *kernel.Kernel, args []string) error

var builtins map[string]builtin

func init() {
	builtins = map[string]builtin{
		"ls":    (*Shell).ls,
		"cat":   (*Shell).cat,
		"write": (*Shell).write,
		"rm":    (*Shell).rm,
		"ps":    (*Shell).ps,
		"sleep": (*Shell).sleep,
	}
}

var errUsage = errors.New("usage")

func (sh *Shell) ls(k *kernel.Kernel, args []string) error {
	ents, err := k.FS().List()
	if err != nil {
		return err
	}
	for _, e := range ents {
		fmt.Fprintf(sh.out, "%s\t%d\n", e.Name, e.Size)
	}
	return nil
}

func (sh *Shell) cat(k *kernel.Kernel, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: cat <file>", errUsage)
	}
	data, err := ReadFile(k.FS(), args[0])
	if err != nil {
		return err
	}
	sh.out.Write(data)
	return nil
}

// write appends the rest of the line, plus a newline, to a file, creating
// it if needed.
func (sh *Shell) write(k *kernel.Kernel, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("%w: write <file> <text>", errUsage)
	}
	text := strings.Join(args[1:], " ") + "\n"
	return AppendFile(k.FS(), args[0], []byte(text))
}

func (sh *Shell) rm(k *kernel.Kernel, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: rm <file>", errUsage)
	}
	return k.FS().Delete(args[0])
}

func (sh *Shell) ps(k *kernel.Kernel, args []string) error {
	fmt.Fprintf(sh.out, "%4s %4s %-8s %s\n", "TID", "PTID", "STATE", "PRIO")
	for _, th := range k.Threads() {
		fmt.Fprintf(sh.out, "%4d %4d %-8v %d\n", th.Tid, th.Parent, th.State, th.Priority)
	}
	return nil
}

func (sh *Shell) sleep(k *kernel.Kernel, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: sleep <ticks>", errUsage)
	}
	n, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("%w: sleep <ticks>", errUsage)
	}
	return k.Sleep(k.Current(), n)
}

// ReadFile returns the contents of name. Files grow a whole block at a
// time, so trailing zero bytes are padding and are dropped.
func ReadFile(fsys *fs.FS, name string) ([]byte, error) {
	ino, err := fsys.Stat(name)
	if err != nil {
		return nil, err
	}
	fd, err := fsys.Open(name)
	if err != nil {
		return nil, err
	}
	data := make([]byte, ino.Size)
	n, err := fsys.Read(fd, data)
	if cerr := fsys.Close(fd); err == nil {
		err = cerr
	}
	return bytes.TrimRight(data[:n], "\x00"), err
}

// AppendFile writes data after the contents of name, as ReadFile sees
// them, creating the file if it does not exist.
func AppendFile(fsys *fs.FS, name string, data []byte) error {
	err := fsys.Create(name)
	if err != nil && !errors.Is(err, fs.ErrExists) {
		return err
	}
	old, err := ReadFile(fsys, name)
	if err != nil {
		return err
	}
	fd, err := fsys.Open(name)
	if err != nil {
		return err
	}
	_, err = fsys.Seek(fd, uint64(len(old)))
	if err == nil {
		_, err = fsys.Write(fd, data)
	}
	if cerr := fsys.Close(fd); err == nil {
		err = cerr
	}
	return err
}
