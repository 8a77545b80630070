package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
)

// Print helper functions for consistent output formatting.
func printHeader(title string) {
	rule := strings.Repeat("=", 40)
	bold := color.New(color.FgCyan, color.Bold)
	_, _ = bold.Println(rule)
	_, _ = bold.Printf("       %s\n", title)
	_, _ = bold.Println(rule)
	fmt.Println()
}

func printSuccess(msg string) {
	fmt.Printf("%s %s\n", color.GreenString("[OK]"), msg)
}

func printInfo(msg string) {
	fmt.Printf("%s %s\n", color.BlueString("[INFO]"), msg)
}

func printWarn(msg string) {
	fmt.Printf("%s %s\n", color.New(color.FgYellow, color.Bold).Sprint("[WARN]"), msg)
}

func printError(msg string) {
	fmt.Printf("%s %s\n", color.RedString("[ERROR]"), msg)
}

func printStep(msg string) {
	fmt.Printf("%s %s\n", color.CyanString(">>>"), msg)
}
