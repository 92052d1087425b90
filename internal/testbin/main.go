// Command testbin is a small interactive console fixture for the playbook
// terminal tests. It mimics a Python REPL closely enough for scenario tests
// to type statements and wait for output.
//
// Behavior:
//   - On startup, prints a ">>> " prompt
//   - On Enter, evaluates the current line:
//   - print("text"): prints text
//   - name = value: stores a variable
//   - name: prints the stored value, or a NameError
//   - for i in range(N): print(i): prints 0..N-1 (for scrollback testing)
//   - size(): prints the terminal size
//   - exit() or exit(N): exits with status 0 or N
//   - Anything else: prints a SyntaxError
package main

import (
	"bufio"
	"fmt"
	"os"
	"os/signal"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"unsafe"
)

var (
	printRe  = regexp.MustCompile(`^print\("(.*)"\)$`)
	assignRe = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_]*)\s*=\s*(.+)$`)
	nameRe   = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	rangeRe  = regexp.MustCompile(`^for i in range\((\d+)\):\s*print\(i\)$`)
	exitRe   = regexp.MustCompile(`^exit\((\d*)\)$`)
)

const prompt = ">>> "

func main() {
	var (
		mu         sync.Mutex
		cols, rows int
	)

	if c, r, err := getTermSize(os.Stdout.Fd()); err == nil {
		mu.Lock()
		cols, rows = c, r
		mu.Unlock()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGWINCH)
	go func() {
		for range sigCh {
			if c, r, err := getTermSize(os.Stdout.Fd()); err == nil {
				mu.Lock()
				cols, rows = c, r
				mu.Unlock()
			}
		}
	}()

	vars := make(map[string]string)

	fmt.Print(prompt)

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		input := strings.TrimSpace(scanner.Text())

		switch {
		case input == "":

		case exitRe.MatchString(input):
			code := 0
			if m := exitRe.FindStringSubmatch(input); m[1] != "" {
				code, _ = strconv.Atoi(m[1])
			}
			os.Exit(code)

		case input == "size()":
			mu.Lock()
			fmt.Printf("size: %dx%d\n", cols, rows)
			mu.Unlock()

		case printRe.MatchString(input):
			fmt.Println(printRe.FindStringSubmatch(input)[1])

		case rangeRe.MatchString(input):
			count, _ := strconv.Atoi(rangeRe.FindStringSubmatch(input)[1])
			for i := 0; i < count; i++ {
				fmt.Println(i)
			}

		case assignRe.MatchString(input):
			m := assignRe.FindStringSubmatch(input)
			vars[m[1]] = strings.Trim(m[2], `"`)

		case nameRe.MatchString(input):
			if v, ok := vars[input]; ok {
				fmt.Println(v)
			} else {
				fmt.Printf("NameError: name '%s' is not defined\n", input)
			}

		default:
			fmt.Println("SyntaxError: invalid syntax")
		}

		fmt.Print(prompt)
	}
}

type winsize struct {
	Row    uint16
	Col    uint16
	Xpixel uint16
	Ypixel uint16
}

func getTermSize(fd uintptr) (cols, rows int, err error) {
	var ws winsize
	_, _, errno := syscall.Syscall(syscall.SYS_IOCTL, fd,
		uintptr(syscall.TIOCGWINSZ), uintptr(unsafe.Pointer(&ws)))
	if errno != 0 {
		return 0, 0, errno
	}
	return int(ws.Col), int(ws.Row), nil
}
