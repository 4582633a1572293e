package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Interactive shell",
	Long: `Start an interactive shell that dispatches the same verbs as the CLI:

  gdc> list insights
  gdc> dedupe preview revenue_overview
  gdc> audit tail

Type "exit" or Ctrl-D to leave.`,
	Run: func(cmd *cobra.Command, args []string) {
		runShell()
	},
}

// shellMode makes fatal recoverable so one failed command does not
// terminate the shell.
var shellMode bool

// shellError carries a fatal message through panic/recover while in
// shell mode.
type shellError string

func runShell() {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "gdc> ",
		HistoryFile:     shellHistoryPath(),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		AutoComplete:    shellCompleter(),
	})
	if err != nil {
		fatal("starting shell: %v", err)
	}
	defer rl.Close()

	cyan := color.New(color.FgCyan).SprintFunc()
	fmt.Printf("%s\n", cyan("gdc interactive shell. Type a command, or \"exit\" to leave."))

	shellMode = true
	defer func() { shellMode = false }()

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err == io.EOF {
			return
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return
		}

		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "exit", "quit":
			return
		case "shell":
			fmt.Println("Already in a shell.")
			continue
		}

		runShellCommand(fields)
	}
}

// runShellCommand dispatches one line through the command tree,
// recovering shell-mode fatals so the loop continues.
func runShellCommand(fields []string) {
	defer func() {
		if r := recover(); r != nil {
			message, ok := r.(shellError)
			if !ok {
				panic(r)
			}
			red := color.New(color.FgRed).SprintFunc()
			fmt.Fprintf(os.Stderr, "%s %s\n", red("Error:"), string(message))
		}
	}()

	rootCmd.SetArgs(fields)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
}

func shellCompleter() readline.AutoCompleter {
	var items []readline.PrefixCompleterInterface
	for _, cmd := range rootCmd.Commands() {
		if cmd.Name() == "shell" {
			continue
		}
		var subs []readline.PrefixCompleterInterface
		for _, sub := range cmd.Commands() {
			subs = append(subs, readline.PcItem(sub.Name()))
		}
		items = append(items, readline.PcItem(cmd.Name(), subs...))
	}
	items = append(items, readline.PcItem("exit"))
	return readline.NewPrefixCompleter(items...)
}

func shellHistoryPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return home + "/.gdc_history"
}

func init() {
	rootCmd.AddCommand(shellCmd)
}
