package tui

import (
	"fmt"
	"strings"
)

// StatusKind indicates severity for status messages.
type StatusKind int

const (
	StatusInfo StatusKind = iota
	StatusSuccess
	StatusError
)

const (
	MsgLoading        = "Loading…"
	MsgLoadingArticle = "Loading article…"
	MsgDeleting       = "Deleting…"
	MsgUpdating       = "Updating…"
	MsgNoResults      = "No results"
	MsgNothingTargets = "Nothing selected"
)

func MsgResultsCount(n int) string {
	if n == 1 {
		return "1 result"
	}
	return fmt.Sprintf("%d results", n)
}

func MsgPageSummary(page, pages, total, size int) string {
	return fmt.Sprintf("page %d/%d • %d articles • %d per page", page, pages, total, size)
}

func MsgModeration(verb string, n int) string {
	noun := "articles"
	if n == 1 {
		noun = "article"
	}
	return fmt.Sprintf("%s %d %s", strings.TrimSpace(verb), n, noun)
}
