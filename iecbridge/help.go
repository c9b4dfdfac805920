// =============================================================================
// help.go - Console Help
// =============================================================================
//
// The overview lists every command of the current mode; ".help <cmd>"
// looks the command up in the global table first, then in the mode's.
//
// =============================================================================

package main

import (
	"fmt"
	"strings"
)

func printHelp(mode REPLMode, topic string) {
	if topic == "" {
		printHelpOverview(mode)
		return
	}
	text, ok := helpTopic(mode, topic)
	if !ok {
		printError(fmt.Sprintf("no help for %q, type .help for the command list", topic))
		return
	}
	fmt.Println(text)
}

// helpTopic looks topic up among the global commands, then among the
// commands of mode.
func helpTopic(mode REPLMode, topic string) (string, bool) {
	key := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(topic)), ".")
	for _, table := range []map[string]string{globalHelp, modeHelp(mode)} {
		if text, ok := table[key]; ok {
			return text, true
		}
	}
	return "", false
}

func modeHelp(mode REPLMode) map[string]string {
	switch mode {
	case ModeDOS:
		return dosHelp
	case ModeBus:
		return busHelp
	default:
		return nil
	}
}

func printHelpOverview(mode REPLMode) {
	fmt.Print(`Global Commands:
  .dos              Switch to DOS mode
  .bus              Switch to Bus mode
  .help [cmd]       Show help (or help for a specific command)
  .device           Show the drive's device number
  .quit             Exit
  @                 Read the status channel
  @<text>           Send a drive command, then read the status
  reset             Pulse the bus RESET line
`)

	switch mode {
	case ModeDOS:
		fmt.Print(`
DOS Commands:
  load <name> [f]   LOAD a file; save it to local file f or hex-dump it
  save <name> <f>   SAVE local file f (load address first) as name
  dir               LOAD "$" and list the directory
  status            Read the status channel
  cmd <text>        Send a drive command, then read the status
  Names with spaces go in double quotes: load "MY GAME"
`)

	case ModeBus:
		fmt.Print(`
Bus Commands:
  open <ch> [text]  OPEN channel ch with a file name or command
  data <ch> [text]  DATA on channel ch without a talk or listen turn
  talk <ch>         DATA on ch while the drive talks; shows what it sent
  listen <ch> <xx>  DATA on ch while the drive listens to octets xx...
  close <ch>        CLOSE channel ch
  Sent octets are shown in hex; * marks the one sent with EOI.
`)
	}
}

var globalHelp = map[string]string{
	"dos": `.dos
  Switch to DOS mode, where commands read like a BASIC session.`,
	"bus": `.bus
  Switch to Bus mode, where each line is one ATN sequence.`,
	"help": `.help [command]
  Without an argument, list the commands of the current mode.`,
	"device": `.device
  Show the device number. The host service can change it when a file is
  closed.`,
	"quit": `.quit
  Close the host link and exit.`,
	"@": `@[text]
  Without text, read the status channel (OPEN 1,8,15:INPUT#1).
  With text, send it as a drive command first (OPEN 15,8,15,"text").`,
	"reset": `reset
  Pulse RESET. The drive forgets its open state and the next status read
  reports the DOS version.`,
}

var dosHelp = map[string]string{
	"load": `load <name> [file]
  LOAD "name",8. The program, load address included, is written to file
  or hex-dumped. load $ lists the directory.
  Example: load "ELITE" elite.prg`,
	"save": `save <name> <file>
  SAVE "name",8 with the contents of file. The first two octets of the
  file are the load address.
  Example: save HELLO hello.prg`,
	"dir": `dir
  LOAD "$",8 and LIST it.`,
	"status": `status
  Read the status channel, e.g. "00, OK,00,00".`,
	"cmd": `cmd <text>
  Send a drive command over channel 15 and show the resulting status.
  Example: cmd S0:OLDFILE`,
}

var busHelp = map[string]string{
	"open": `open <ch> [text]
  OPEN on secondary address ch. The drive forwards it to the host service
  and does not wait for the reply.
  Example: open 0 ELITE`,
	"data": `data <ch> [text]
  DATA under ATN with no talk or listen turn. On channel 15 the text is
  forwarded as a command.`,
	"talk": `talk <ch>
  DATA with the drive as talker: file, listing or status, depending on
  what the host service answered to the last OPEN.
  Example: talk 0`,
	"listen": `listen <ch> <octet>...
  DATA with the drive as listener. The octets (hex) are offered to the
  drive, the last one with EOI.
  Example: listen 1 01 08 0B 08`,
	"close": `close <ch>
  CLOSE on secondary address ch.`,
}
