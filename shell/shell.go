package shell

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/mattn/go-shellwords"
	"github.com/pkg/errors"

	"github.com/oystub/barbershop/config"
	"github.com/oystub/barbershop/runlog"
	"github.com/oystub/barbershop/shop"
)

const prompt = "(Console) "

type command struct {
	usage string
	help  string
	run   func(sh *Shell, args []string) error
}

var commands map[string]command

func init() {
	commands = map[string]command{
		"help":      {"help", "show this help message", (*Shell).help},
		"start":     {"start", "start the barber", (*Shell).start},
		"stop":      {"stop", "stop the barber and list the served customers", (*Shell).stop},
		"status":    {"status", "show current status", (*Shell).status},
		"edit":      {"edit [key [value]]", "edit the config file, applies at the next start", (*Shell).edit},
		"explain":   {"explain", "explain config file structure", (*Shell).explain},
		"customers": {"customers [run-id]", "list the customers of a run", (*Shell).customers},
		"history":   {"history", "list past runs", (*Shell).history},
		"exit":      {"exit", "stop the barber and exit the program", (*Shell).exit},
	}
}

var errExit = errors.New("exit")

// Shell is the interactive console of the barber shop. Commands are read
// line by line from in, the simulation narrates on out through the console
// log hook.
type Shell struct {
	shop  *shop.Shop
	lines chan string
	out   io.Writer
	color bool

	ctx context.Context // of the current Run, ends prompts
}

func New(s *shop.Shop, in io.Reader, out io.Writer, color bool) *Shell {
	sh := &Shell{
		shop:  s,
		lines: make(chan string),
		out:   out,
		color: color,
		ctx:   context.Background(),
	}
	go sh.read(in)
	return sh
}

func (sh *Shell) read(in io.Reader) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		sh.lines <- scanner.Text()
	}
	close(sh.lines)
}

// Run reads commands until exit, end of input or ctx is cancelled. The
// simulation is stopped before Run returns.
func (sh *Shell) Run(ctx context.Context) error {
	defer sh.shop.Stop()
	sh.ctx = ctx
	sh.println(runlog.Blue, "Enter a command (help for usage):")
	for {
		fmt.Fprint(sh.out, prompt)
		line, ok := sh.next(ctx)
		if !ok {
			fmt.Fprintln(sh.out)
			return ctx.Err()
		}
		if err := sh.Execute(line); err == errExit {
			return nil
		}
	}
}

func (sh *Shell) next(ctx context.Context) (string, bool) {
	select {
	case <-ctx.Done():
		return "", false
	case line, ok := <-sh.lines:
		return line, ok
	}
}

// Execute runs one command line. It returns errExit after the exit command.
func (sh *Shell) Execute(line string) error {
	words, err := shellwords.Parse(line)
	if err != nil {
		sh.println(runlog.Red, fmt.Sprintf("Cannot parse command: %v", err))
		return err
	}
	if len(words) == 0 {
		return nil
	}
	name := strings.ToLower(words[0])
	cmd, ok := commands[name]
	if !ok {
		sh.println(runlog.Yellow, fmt.Sprintf("Unknown command: %s. Type 'help' for usage.", name))
		return nil
	}
	err = cmd.run(sh, words[1:])
	if err != nil && err != errExit {
		sh.println(runlog.Red, err.Error())
	}
	return err
}

func (sh *Shell) help(args []string) error {
	if cfg, err := sh.shop.Config(); err == nil {
		sh.printConfig(cfg)
	}
	sh.println(runlog.Blue, "Available commands:")
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		sh.println(runlog.Green, fmt.Sprintf(" %-20s - %s", commands[name].usage, commands[name].help))
	}
	return nil
}

func (sh *Shell) explain(args []string) error {
	var b strings.Builder
	config.Explain(&b)
	for _, line := range strings.Split(strings.TrimRight(b.String(), "\n"), "\n") {
		sh.println(runlog.Cyan, line)
	}
	return nil
}

func (sh *Shell) exit(args []string) error {
	sh.shop.Stop()
	sh.println(runlog.Red, "Exiting the program...")
	return errExit
}

func (sh *Shell) println(color, msg string) {
	fmt.Fprintln(sh.out, runlog.Paint(sh.color, color, msg))
}

// ask reads one more line of input. "cancel", the end of input or the end
// of the Run context abort.
func (sh *Shell) ask(question string) (string, bool) {
	sh.println(runlog.Blue, question)
	fmt.Fprint(sh.out, prompt)
	line, ok := sh.next(sh.ctx)
	if !ok {
		return "", false
	}
	line = strings.TrimSpace(line)
	if strings.EqualFold(line, "cancel") {
		sh.println(runlog.Yellow, "Edit canceled.")
		return "", false
	}
	return line, true
}
