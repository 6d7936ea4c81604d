package completion

import (
	"bytes"
	_ "embed"
	"fmt"
	"strings"
	"text/template"
)

//go:embed templates/bash_completion.bash
var bashTemplate string

//go:embed templates/zsh_completion.zsh
var zshTemplate string

// Shells lists the shells a script can be generated for.
var Shells = []string{"bash", "zsh"}

type flagView struct {
	Pattern string
	Values  string
	Spec    string
}

type commandView struct {
	Name        string
	Description string
	Opts        string
	ZshFlags    []flagView
}

type scriptView struct {
	Prog         string
	Func         string
	CommandNames string
	GlobalOpts   string
	Global       []flagView
	Commands     []commandView
	ValueFlags   []flagView
}

func zshSpec(f FlagInfo) string {
	desc := strings.ReplaceAll(f.Description, "'", "")
	desc = strings.ReplaceAll(desc, ":", " ")
	arg := ""
	if f.HasValue {
		arg = ":" + strings.ToLower(f.ValueHint) + ":"
		if len(f.Values) > 0 {
			arg += "(" + strings.Join(f.Values, " ") + ")"
		}
	}
	if f.Short == "" {
		return fmt.Sprintf("--%s[%s]%s", f.Name, desc, arg)
	}
	return fmt.Sprintf("(-%s --%s)'{-%s,--%s}'[%s]%s", f.Short, f.Name, f.Short, f.Name, desc, arg)
}

func newView(prog string) scriptView {
	v := scriptView{
		Prog:       prog,
		Func:       strings.ReplaceAll(prog, "-", "_"),
		GlobalOpts: strings.Join(Options(GlobalFlags()), " "),
	}
	seen := map[string]bool{}
	addValues := func(f FlagInfo) {
		if len(f.Values) == 0 || seen[f.Name] {
			return
		}
		seen[f.Name] = true
		pattern := "--" + f.Name
		if f.Short != "" {
			pattern += "|-" + f.Short
		}
		v.ValueFlags = append(v.ValueFlags, flagView{Pattern: pattern, Values: strings.Join(f.Values, " ")})
	}
	for _, f := range GlobalFlags() {
		v.Global = append(v.Global, flagView{Spec: zshSpec(f)})
		addValues(f)
	}
	var names []string
	for _, c := range Commands() {
		names = append(names, c.Name)
		cv := commandView{Name: c.Name, Description: c.Description, Opts: strings.Join(Options(c.Flags), " ")}
		for _, f := range c.Flags {
			cv.ZshFlags = append(cv.ZshFlags, flagView{Spec: zshSpec(f)})
			addValues(f)
		}
		if c.Name == "completion" {
			cv.Opts = strings.Join(Shells, " ")
		}
		v.Commands = append(v.Commands, cv)
	}
	v.CommandNames = strings.Join(names, " ")
	return v
}

// Script renders the completion script of shell for the program prog.
func Script(shell, prog string) (string, error) {
	var text string
	switch shell {
	case "bash":
		text = bashTemplate
	case "zsh":
		text = zshTemplate
	default:
		return "", fmt.Errorf("unsupported shell: %s (supported: %s)", shell, strings.Join(Shells, ", "))
	}
	tmpl, err := template.New(shell).Parse(text)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, newView(prog)); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Instructions returns how to enable completion for shell.
func Instructions(shell, prog string) string {
	switch shell {
	case "zsh":
		return fmt.Sprintf("# add to ~/.zshrc:\nsource <(%s completion zsh)\ncompdef _%s %s\n",
			prog, strings.ReplaceAll(prog, "-", "_"), prog)
	default:
		return fmt.Sprintf("# add to ~/.bashrc:\nsource <(%s completion bash)\n", prog)
	}
}
