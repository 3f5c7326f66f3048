package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
)

var (
	stdinReader = bufio.NewReader(os.Stdin)
	accent      = color.New(color.FgCyan, color.Bold)
	success     = color.New(color.FgGreen, color.Bold)
	warn        = color.New(color.FgYellow, color.Bold)
	danger      = color.New(color.FgRed, color.Bold)
	neutral     = color.New(color.FgHiWhite)
)

func printSuccess(msg string) {
	success.Println(msg)
}

func printWarn(msg string) {
	warn.Println(msg)
}

func printError(msg string) {
	danger.Println(msg)
}

func printInfo(msg string) {
	neutral.Println(msg)
}

func printJSON(v any) {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		printWarn(err.Error())
		return
	}
	fmt.Println(string(raw))
}

func promptRequired(label string) (string, error) {
	for {
		fmt.Printf("%s: ", label)
		text, err := stdinReader.ReadString('\n')
		if err != nil {
			return "", err
		}
		text = strings.TrimSpace(text)
		if text != "" {
			return text, nil
		}
		printWarn(label + " is required.")
	}
}

func printTeam(team map[string]any) {
	accent.Printf("%v\n", team["name"])
	neutral.Printf("  cash:      %v\n", team["cash"])
	neutral.Printf("  shares:    %v\n", team["shares_owned"])
	neutral.Printf("  net worth: %v\n", team["net_worth"])
	if frozen, _ := team["is_frozen"].(bool); frozen {
		danger.Printf("  FROZEN until %v\n", team["frozen_until"])
	}
}

func printMarket(market map[string]any) {
	accent.Printf("price %v\n", market["current_price"])
	neutral.Printf("  trend:  %v\n", market["market_trend"])
	neutral.Printf("  status: %v\n", market["game_status"])
	neutral.Printf("  round:  %v\n", market["current_round"])
	if ticks, ok := market["crash_ticks_remaining"].(float64); ok && ticks > 0 {
		danger.Printf("  crash in progress, %d ticks remaining\n", int(ticks))
	}
}

func printStatus(state map[string]any) {
	accent.Printf("session %v\n", state["status"])
	neutral.Printf("  round:          %v\n", state["current_round"])
	neutral.Printf("  round time:     %vs\n", state["round_time_remaining"])
	neutral.Printf("  session time:   %vs\n", state["time_remaining"])
}

func printLeaderboard(out map[string]any) {
	players, _ := out["players"].([]any)
	if len(players) == 0 {
		printInfo("No teams yet.")
		return
	}
	for i, p := range players {
		team, _ := p.(map[string]any)
		if team == nil {
			continue
		}
		frozen := ""
		if f, _ := team["is_frozen"].(bool); f {
			frozen = "  [frozen]"
		}
		fmt.Printf("%2d. %-20v net worth %v%s\n", i+1, team["name"], team["net_worth"], frozen)
	}
}

func printNews(out map[string]any) {
	item, _ := out["news"].(map[string]any)
	if item == nil {
		printInfo("No active news.")
		return
	}
	accent.Printf("%v\n", item["headline"])
	neutral.Printf("  effect: %v  at %v\n", item["effect"], item["created_at"])
}
