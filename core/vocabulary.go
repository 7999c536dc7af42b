package core

import (
	"strings"
	"unicode"
)

// Domain vocabulary shared by the heuristic matcher, the query expander,
// the content searcher and ingestion tagging. All entries are lowercase.

// Processors lists known payment processors.
var Processors = []string{
	"tsys",
	"clearent",
	"voyager",
	"worldpay",
	"fiserv",
	"first data",
	"heartland",
	"elavon",
	"global payments",
	"chase paymentech",
	"square",
	"stripe",
	"shift4",
	"merchant lynx",
	"micamp",
	"quantic",
	"tracerpay",
	"authorize.net",
	"paysafe",
	"adyen",
	"payroc",
	"nuvei",
}

// POSTerms lists point-of-sale systems and product categories.
var POSTerms = []string{
	"pos",
	"point of sale",
	"terminal",
	"card reader",
	"pin pad",
	"clover",
	"skytab",
	"toast",
	"aloha",
	"micros",
	"lightspeed",
	"revel",
	"hotsauce",
}

// FoodTerms lists restaurant and food-service vocabulary.
var FoodTerms = []string{
	"restaurant",
	"food",
	"cafe",
	"bar",
	"diner",
	"pizza",
	"bakery",
	"coffee",
	"catering",
	"food truck",
	"bistro",
}

// IntegrationTerms lists accounting and property-management software.
var IntegrationTerms = []string{
	"quickbooks",
	"xero",
	"sage",
	"freshbooks",
	"netsuite",
	"pms",
	"property management",
	"opera",
	"cloudbeds",
	"mews",
	"epicor",
}

// ServiceTerms lists service and category vocabulary used in document metadata.
var ServiceTerms = []string{
	"pricing",
	"rates",
	"fees",
	"interchange",
	"equipment",
	"terminal",
	"pos",
	"gateway",
	"application",
	"agreement",
	"contract",
	"statement",
	"chargeback",
	"ach",
	"high risk",
	"underwriting",
	"compliance",
	"pci",
	"support",
	"onboarding",
	"residual",
	"commission",
}

// ContentKeywords widens chunk content search. A search term containing one of
// these also matches chunks that mention the keyword.
var ContentKeywords = append([]string{
	"rates",
	"pricing",
	"equipment",
	"merchant",
	"terminal",
	"gateway",
	"fees",
	"application",
	"processing",
}, Processors...)

// SemanticTags is the vocabulary used to tag chunks at ingestion.
var SemanticTags = dedupeTerms(Processors, POSTerms, IntegrationTerms, ServiceTerms)

// Tokenize lowercases text and splits it on anything that is not a letter or digit.
func Tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// ContainsTerm reports whether term appears in text as a whole word or phrase.
// Both arguments are compared case-insensitively.
func ContainsTerm(text, term string) bool {
	if term == "" {
		return false
	}
	text = strings.ToLower(text)
	term = strings.ToLower(term)
	for offset := 0; offset < len(text); {
		idx := strings.Index(text[offset:], term)
		if idx < 0 {
			return false
		}
		start := offset + idx
		end := start + len(term)
		if isBoundary(text, start-1) && isBoundary(text, end) {
			return true
		}
		offset = start + 1
	}
	return false
}

// MentionedTerms returns the vocabulary entries found in text, in vocabulary order.
func MentionedTerms(text string, vocabulary []string) []string {
	var found []string
	for _, term := range vocabulary {
		if ContainsTerm(text, term) {
			found = append(found, term)
		}
	}
	return found
}

// SharesTerm reports whether a and b both mention the same vocabulary entry.
func SharesTerm(a, b string, vocabulary []string) bool {
	for _, term := range vocabulary {
		if ContainsTerm(a, term) && ContainsTerm(b, term) {
			return true
		}
	}
	return false
}

func isBoundary(text string, i int) bool {
	if i < 0 || i >= len(text) {
		return true
	}
	c := rune(text[i])
	return !unicode.IsLetter(c) && !unicode.IsDigit(c)
}

func dedupeTerms(lists ...[]string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, list := range lists {
		for _, term := range list {
			if !seen[term] {
				seen[term] = true
				out = append(out, term)
			}
		}
	}
	return out
}
