package command

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/samber/lo"
)

const (
	shrugFace = `¯\_(ツ)_/¯`
	maxDice   = 100
	maxSides  = 1000
)

// Builtins returns the default command table.
func Builtins() []Command {
	return []Command{
		{Name: "test", Kind: Public, Usage: "/test [balls]", Run: runTest},
		{Name: "me", Kind: Public, Usage: "/me <action>", Run: runMe},
		{Name: "shrug", Kind: Public, Usage: "/shrug [text]", Run: runShrug},
		{Name: "roll", Kind: Public, Usage: "/roll [NdM]", Run: runRoll},
		{Name: "test2", Kind: HubOnly, Usage: "/test2 [uh]", Run: runTest2},
		{Name: "announce", Kind: HubOnly, Usage: "/announce <text>", Run: runAnnounce},
		{Name: "who", Kind: HubOnly, Usage: "/who", Run: runWho},
	}
}

func runTest(_ Env, args []string) []string {
	out := []string{"my goat"}
	if len(args) >= 1 && args[0] == "balls" {
		out = append(out, "my go to is")
	}
	return out
}

func runTest2(_ Env, args []string) []string {
	out := []string{"my goatiest auu"}
	if len(args) >= 1 && args[0] == "uh" {
		out = append(out, "hawk two uh")
	}
	return out
}

func runMe(env Env, args []string) []string {
	if len(args) == 0 {
		return nil
	}
	return []string{fmt.Sprintf("* %s %s", env.Username, strings.Join(args, " "))}
}

func runShrug(env Env, args []string) []string {
	text := shrugFace
	if len(args) > 0 {
		text = strings.Join(args, " ") + " " + shrugFace
	}
	return []string{env.Border + text}
}

func runRoll(env Env, args []string) []string {
	spec := "1d6"
	if len(args) > 0 {
		spec = strings.ToLower(args[0])
	}
	dice, sides, ok := parseDice(spec)
	if !ok {
		return nil
	}
	rolls := make([]int, dice)
	for i := range rolls {
		rolls[i] = env.Rand(sides) + 1
	}
	total := lo.Sum(rolls)
	line := fmt.Sprintf("%s rolls %dd%d: %d", env.Username, dice, sides, total)
	if dice > 1 {
		parts := lo.Map(rolls, func(r int, _ int) string { return strconv.Itoa(r) })
		line += " (" + strings.Join(parts, ", ") + ")"
	}
	return []string{line}
}

// parseDice accepts "NdM" and "dM".
func parseDice(spec string) (dice, sides int, ok bool) {
	n, m, found := strings.Cut(spec, "d")
	if !found {
		return 0, 0, false
	}
	dice = 1
	if n != "" {
		v, err := strconv.Atoi(n)
		if err != nil {
			return 0, 0, false
		}
		dice = v
	}
	sides, err := strconv.Atoi(m)
	if err != nil {
		return 0, 0, false
	}
	if dice < 1 || dice > maxDice || sides < 1 || sides > maxSides {
		return 0, 0, false
	}
	return dice, sides, true
}

func runAnnounce(_ Env, args []string) []string {
	if len(args) == 0 {
		return nil
	}
	return []string{"*** " + strings.Join(args, " ") + " ***"}
}

func runWho(env Env, _ []string) []string {
	names := env.Online()
	if len(names) == 0 {
		return []string{"Online: nobody"}
	}
	return []string{"Online: " + strings.Join(names, ", ")}
}
