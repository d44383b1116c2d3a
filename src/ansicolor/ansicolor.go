package ansicolor

import (
	"os"
	"runtime"
)

// Escape codes for the pretty log writer. All of them collapse to empty
// strings on Windows consoles and when NO_COLOR is set.

var Reset = "\033[0m"
var Bold = "\033[1m"
var Faint = "\033[2m"

var Red = "\033[31m"
var Green = "\033[32m"
var Yellow = "\033[33m"
var Blue = "\033[34m"
var Gray = "\033[37m"

var BgRed = "\033[41m"
var BgGreen = "\033[42m"
var BgYellow = "\033[43m"
var BgBlue = "\033[44m"

func init() {
	if runtime.GOOS == "windows" || os.Getenv("NO_COLOR") != "" {
		Disable()
	}
}

func Disable() {
	Reset = ""
	Bold = ""
	Faint = ""
	Red = ""
	Green = ""
	Yellow = ""
	Blue = ""
	Gray = ""
	BgRed = ""
	BgGreen = ""
	BgYellow = ""
	BgBlue = ""
}
