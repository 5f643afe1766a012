package main

import (
	"fmt"

	"github.com/fatih/color"

	"github.com/nhle/goal-guardian/internal/ingest"
	"github.com/nhle/goal-guardian/internal/model"
)

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow, color.Bold)
	red    = color.New(color.FgRed)
	faint  = color.New(color.Faint)
)

func success(format string, args ...any) {
	green.Printf("  → "+format+"\n", args...)
}

func warning(format string, args ...any) {
	yellow.Printf("  ⚠ "+format+"\n", args...)
}

func failure(format string, args ...any) {
	red.Printf("Error: "+format+"\n", args...)
}

// printResult summarizes one ingestion pass.
func printResult(a model.Account, res ingest.Result) {
	success("%s: %d new transaction(s), %d already stored", a.Username, res.NewCount, res.Duplicates)

	eval := res.Evaluation
	if eval.ActiveBudget != nil {
		line := fmt.Sprintf("    spent %s of %s, %s remaining",
			eval.SpentToDate.StringFixed(2),
			eval.ActiveBudget.Amount.StringFixed(2),
			eval.Remaining.StringFixed(2),
		)
		if eval.Remaining.IsNegative() {
			red.Println(line)
		} else {
			faint.Println(line)
		}
	}
	if res.Notification != nil {
		warning("%s", res.Notification.Message)
	}
}
