package engine

import "errors"

var (
	errNoProviders     = errors.New("no venue providers registered")
	errAllQuotesFailed = errors.New("all venues failed to quote")
)
