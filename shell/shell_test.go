package shell

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mit-pdos/go-bareos/kernel"
)

func runShell(t *testing.T, input string) (string, byte) {
	p := kernel.DefaultParams()
	p.Threads = 4
	k, err := kernel.New(p)
	require.NoError(t, err)
	t.Cleanup(k.Halt)

	var out bytes.Buffer
	sh := New(strings.NewReader(input), &out)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	ret, err := k.Run(ctx, sh.Main, nil)
	require.NoError(t, err)
	return strings.ReplaceAll(out.String(), Prompt, ""), ret
}

func TestHello(t *testing.T) {
	out, ret := runShell(t, "hello world\n")
	assert.Equal(t, "Hello, world!\n", out)
	assert.Equal(t, byte(0), ret)
}

func TestHelloNoArgument(t *testing.T) {
	out, ret := runShell(t, "hello\necho $?\n")
	assert.Equal(t, "Error - bad argument\n1\n", out)
	assert.Equal(t, byte(0), ret)
}

func TestEchoLines(t *testing.T) {
	out, _ := runShell(t, "echo\nabc\nde\n\necho $?\n")
	assert.Equal(t, "abc\nde\n5\n", out)
}

func TestUnknownCommand(t *testing.T) {
	out, _ := runShell(t, "bogus\n\n")
	assert.Equal(t, "Unknown command\n", out)
}

func TestExit(t *testing.T) {
	out, ret := runShell(t, "hello\nexit\nhello b\n")
	assert.Equal(t, "Error - bad argument\n", out)
	assert.Equal(t, byte(1), ret)
}

func TestFiles(t *testing.T) {
	out, _ := runShell(t, strings.Join([]string{
		"write f hi there",
		"write f again",
		"cat f",
		"ls",
		"rm f",
		"ls",
		"cat f",
		"echo $?",
	}, "\n")+"\n")
	lines := strings.Split(out, "\n")
	require.GreaterOrEqual(t, len(lines), 5)
	assert.Equal(t, []string{"hi there", "again", "f\t1024"}, lines[:3])
	assert.True(t, strings.HasPrefix(lines[3], "error: "), lines[3])
	assert.Equal(t, "1", lines[4])
}

func TestPs(t *testing.T) {
	out, _ := runShell(t, "ps\n")
	assert.Contains(t, out, "RUNNING")
}

func TestExpand(t *testing.T) {
	sh := New(strings.NewReader(""), &bytes.Buffer{})
	sh.ret = 42
	assert.Equal(t, "x 42 42", sh.expand("x $? $?"))
	assert.Equal(t, "$", sh.expand("$"))
}

func TestReadLine(t *testing.T) {
	sh := New(strings.NewReader("helo\blo x\r\nlast"), &bytes.Buffer{})
	line, err := sh.readLine()
	assert.NoError(t, err)
	assert.Equal(t, "hello x", line)
	line, err = sh.readLine()
	assert.NoError(t, err)
	assert.Equal(t, "", line, "\\r\\n ends two lines")
	line, err = sh.readLine()
	assert.NoError(t, err)
	assert.Equal(t, "last", line)
	_, err = sh.readLine()
	assert.Error(t, err)
}
