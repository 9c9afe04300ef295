// Package assist is a scripted integration-assistance stub. It picks a canned response
// by keyword rules, there is no language model behind it.
package assist

import (
	"strings"

	"github.com/umputun/jobbridge/app/catalog"
)

// TopicGeneric is the topic of the fallback response
const TopicGeneric = "generic"

// Reply is a canned response for a question
type Reply struct {
	Topic string `json:"topic"`
	Text  string `json:"text"`
}

// Generic tells if the reply is the fallback, no rule matched
func (r Reply) Generic() bool { return r.Topic == TopicGeneric }

// Responder matches questions against ordered keyword rules
type Responder struct {
	rules    []catalog.Rule
	fallback string
}

// NewResponder makes responder from catalog answers. Default rules apply unless their keyword
// is redefined, missing fallback filled with default.
func NewResponder(answers catalog.Answers) *Responder {
	def := catalog.DefaultAnswers()
	res := &Responder{fallback: answers.Fallback}
	if strings.TrimSpace(res.fallback) == "" {
		res.fallback = def.Fallback
	}
	for _, r := range catalog.MergeRules(answers.Rules) {
		r.Keyword = strings.ToLower(strings.TrimSpace(r.Keyword))
		if r.Keyword == "" {
			continue
		}
		if r.Topic == "" {
			r.Topic = r.Keyword
		}
		res.rules = append(res.rules, r)
	}
	return res
}

// Answer returns reply for the question. First rule with keyword contained in the
// lower-cased question wins, otherwise the generic fallback. Blank question gives no reply.
func (r *Responder) Answer(question string) (Reply, bool) {
	q := strings.ToLower(strings.TrimSpace(question))
	if q == "" {
		return Reply{}, false
	}
	for _, rule := range r.rules {
		if strings.Contains(q, rule.Keyword) {
			return Reply{Topic: rule.Topic, Text: rule.Text}, true
		}
	}
	return Reply{Topic: TopicGeneric, Text: r.fallback}, true
}
