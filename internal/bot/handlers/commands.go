package handlers

import (
	"fmt"
	"strings"
)

// Command names as typed after the slash, lower case.
const (
	CommandStart       = "start"
	CommandHelp        = "help"
	CommandAdd         = "add"
	CommandDelete      = "delete"
	CommandList        = "list"
	CommandCheck       = "check"
	CommandMute        = "mute"
	CommandUnmute      = "unmute"
	CommandStatus      = "status"
	CommandMarketAlert = "marketalert"
)

var knownCommands = map[string]struct{}{
	CommandStart:       {},
	CommandHelp:        {},
	CommandAdd:         {},
	CommandDelete:      {},
	CommandList:        {},
	CommandCheck:       {},
	CommandMute:        {},
	CommandUnmute:      {},
	CommandStatus:      {},
	CommandMarketAlert: {},
}

// IsKnownCommand reports whether name is one of the bot's commands.
func IsKnownCommand(name string) bool {
	_, ok := knownCommands[name]
	return ok
}

// HelpText lists the commands. digestSchedule describes when the daily digest goes out, e.g. "22:00 Asia/Singapore".
func HelpText(digestSchedule string) string {
	lines := []string{
		"📈 /add <ticker> – Start tracking a stock (e.g., /add AAPL)",
		"🗑️ /delete <ticker> – Remove a stock from your watchlist",
		"📋 /list – View all stocks you’re currently tracking",
		"🔎 /check <ticker> – Check the current price of any stock",
		fmt.Sprintf("📤 Daily Alerts – Sent daily at %s", digestSchedule),
		"🕒 /marketalert <time> – Get price updates every X mins/hours during US market hours (e.g. /marketalert 1hour)",
		"🔕 /mute – Turn off all alerts",
		"🔔 /unmute – Turn them back on",
		"ℹ️ /status – Check if alerts are currently active",
	}

	return strings.Join(lines, "\n") + "\n\nLet’s get started — try /add TSLA to begin! 🚀"
}
