package search

import (
	"strings"

	"github.com/poiesic/merchantdesk/core"
)

// maxClusterPhrases leaves room for the generic terms after cluster phrases.
const maxClusterPhrases = 3

// genericTerms are always offered as alternatives.
var genericTerms = []string{
	"payment processing",
	"credit card processing",
	"merchant services",
}

var supportTriggers = []string{"support", "help", "contact", "customer service"}

// phraseCluster contributes its phrases when any trigger appears in the query.
type phraseCluster struct {
	triggers []string
	phrases  []string
}

var applicationCluster = phraseCluster{
	triggers: []string{"application", "apply", "sign up", "signup", "onboarding", "new merchant", "new account"},
	phrases:  []string{"merchant application", "merchant account setup", "onboarding checklist"},
}

var riskCluster = phraseCluster{
	triggers: []string{"high risk", "risk", "compliance", "pci", "chargeback", "chargebacks", "underwriting", "reserve"},
	phrases:  []string{"high risk merchant account", "pci compliance", "chargeback management"},
}

var achCluster = phraseCluster{
	triggers: []string{"ach", "bank", "banking", "echeck", "e-check", "deposit", "deposits", "funding", "direct debit"},
	phrases:  []string{"ach processing", "echeck processing", "merchant deposits and funding"},
}

// processorClusters hold fixed phrasings per processor: aliases, parent
// companies and the products sales reps usually ask about.
var processorClusters = map[string][]string{
	"tsys":             {"tsys merchant services", "global payments tsys", "tsys pricing"},
	"clearent":         {"clearent pricing", "clearent by xplor", "clearent merchant portal"},
	"fiserv":           {"first data", "clover", "fiserv merchant services"},
	"first data":       {"fiserv", "clover", "first data merchant services"},
	"worldpay":         {"worldpay from fis", "vantiv", "worldpay pricing"},
	"heartland":        {"heartland payment systems", "global payments heartland", "heartland pricing"},
	"elavon":           {"elavon merchant services", "us bank elavon", "elavon pricing"},
	"global payments":  {"tsys", "heartland", "global payments merchant services"},
	"chase paymentech": {"chase merchant services", "paymentech", "chase pricing"},
	"square":           {"square pricing", "square hardware", "square payments"},
	"stripe":           {"stripe pricing", "stripe connect", "stripe payments"},
	"shift4":           {"shift4 payments", "skytab", "shift4 pricing"},
}

// QueryExpander produces deterministic alternative phrasings of a query.
type QueryExpander struct {
	maxAlternatives int
}

// NewQueryExpander creates an expander returning at most maxAlternatives phrases.
func NewQueryExpander(maxAlternatives int) *QueryExpander {
	if maxAlternatives < 1 {
		maxAlternatives = DefaultSettings().MaxAlternatives
	}
	return &QueryExpander{maxAlternatives: maxAlternatives}
}

// Expand returns distinct alternatives to query, never including the query itself.
func (e *QueryExpander) Expand(query string) []string {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}

	seen := map[string]bool{strings.ToLower(query): true}
	var alternatives []string
	add := func(phrase string) bool {
		key := strings.ToLower(strings.TrimSpace(phrase))
		if key == "" || seen[key] || len(alternatives) >= e.maxAlternatives {
			return false
		}
		seen[key] = true
		alternatives = append(alternatives, phrase)
		return true
	}

	added := 0
	for _, phrase := range clusterPhrases(query) {
		if added >= maxClusterPhrases {
			break
		}
		if add(phrase) {
			added++
		}
	}
	for _, term := range genericTerms {
		add(term)
	}
	for _, token := range core.Tokenize(query) {
		if len([]rune(token)) > 2 {
			add(token)
		}
	}
	return alternatives
}

// clusterPhrases collects phrases from every cluster the query triggers,
// in a fixed cluster order.
func clusterPhrases(query string) []string {
	processors := core.MentionedTerms(query, core.Processors)

	var phrases []string
	if len(processors) > 0 && mentionsAny(query, supportTriggers) {
		for _, p := range processors {
			phrases = append(phrases, p+" customer service", p+" support phone number")
		}
	}
	if mentionsAny(query, applicationCluster.triggers) {
		phrases = append(phrases, applicationCluster.phrases...)
	}
	for _, p := range processors {
		phrases = append(phrases, processorClusters[p]...)
	}
	if mentionsAny(query, riskCluster.triggers) {
		phrases = append(phrases, riskCluster.phrases...)
	}
	if mentionsAny(query, achCluster.triggers) {
		phrases = append(phrases, achCluster.phrases...)
	}
	return phrases
}

func mentionsAny(text string, terms []string) bool {
	for _, term := range terms {
		if core.ContainsTerm(text, term) {
			return true
		}
	}
	return false
}
