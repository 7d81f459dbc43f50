// internal/pipeline/classify.go
package pipeline

import (
	"strings"

	"github.com/signalnine/fritzlog/internal/config"
	"github.com/signalnine/fritzlog/internal/model"
)

// Rule maps a predicate over (message, code) to a severity. Rules are
// evaluated top-down, first match wins. The message passed to Match is
// already lower-cased: classification is case-insensitive. Exclusion is
// not (see Classifier.Excluded).
type Rule struct {
	Match func(msg, code string) bool
	Level model.Level
}

// Event IDs the firmware uses for hard failures regardless of message
// wording: DSL sync loss, PPPoE errors, rejected logins. The text of
// these events shifts between firmware releases, the ID does not.
var errorCodes = map[string]bool{
	"26":  true, // DSL sync lost
	"29":  true, // PPPoE timeout
	"33":  true, // internet connection could not be established
	"134": true, // IPv6 prefix lost
	"513": true, // login to the web interface rejected
}

// Message fragments indicating a failed operation. German first, the
// firmware mixes in English for some subsystems.
var errorPatterns = []string{
	"fehler", "error", "gescheitert", "fehlgeschlagen", "failed", "failure",
	"nicht verfügbar", "unavailable", "timeout", "abgebrochen", "cancelled",
	"unterbrochen", "interrupted", "verbindung getrennt", "disconnected",
	"authentifizierungsfehler", "authentication error", "login failed",
	"anmeldung gescheitert", "verbindungsaufbau fehlgeschlagen",
	"connection failed", "nicht erreichbar", "unreachable",
}

// Message fragments indicating degraded but working service.
var warningPatterns = []string{
	"warnung", "warning", "achtung", "hinweis",
	"zeitüberschreitung", "langsam", "slow",
	"schwach", "weak", "instabil", "unstable", "störung",
	"überlastet", "overload", "verzögerung", "delay",
	"trennung", "disconnect", "verbindung unterbrochen",
	"zwangstrennung", "wartung", "maintenance",
}

// DefaultRules returns the standard ordered rule set:
//
//  1. planned reconnects announced by the device -> warning
//  2. known failure event codes -> error
//  3. failure message fragments -> error
//  4. degradation message fragments -> warning
//  5. everything else -> info
func DefaultRules() []Rule {
	return []Rule{
		{Match: plannedAction, Level: model.LevelWarning},
		{Match: func(_, code string) bool { return errorCodes[code] }, Level: model.LevelError},
		{Match: containsAny(errorPatterns), Level: model.LevelError},
		{Match: containsAny(warningPatterns), Level: model.LevelWarning},
	}
}

// plannedAction catches the nightly forced-reconnect notices. They read
// like failures ("Zwangstrennung", "kurz unterbrochen") but announce a
// deliberate action, so they must outrank the error fragments.
func plannedAction(msg, _ string) bool {
	if !strings.Contains(msg, "zuvorzukommen") {
		return false
	}
	return strings.Contains(msg, "zwangstrennung") || strings.Contains(msg, "kurz unterbrochen")
}

func containsAny(patterns []string) func(msg, code string) bool {
	return func(msg, _ string) bool {
		for _, p := range patterns {
			if strings.Contains(msg, p) {
				return true
			}
		}
		return false
	}
}

// Classifier assigns severities and applies the exclusion filter. It
// holds no mutable state; Classify is a pure function of its inputs.
type Classifier struct {
	rules   []Rule
	exclude []config.Pattern
}

// NewClassifier builds a classifier from an ordered rule list and the
// configured exclusion patterns.
func NewClassifier(rules []Rule, exclude []config.Pattern) *Classifier {
	return &Classifier{rules: rules, exclude: exclude}
}

// Classify returns the severity for a message and event code. Falls
// through to info when no rule matches.
func (c *Classifier) Classify(message, code string) model.Level {
	msg := strings.ToLower(message)
	for _, rule := range c.rules {
		if rule.Match(msg, code) {
			return rule.Level
		}
	}
	return model.LevelInfo
}

// Excluded reports whether the message matches any exclusion pattern.
// Excluded records are dropped before classification and never written.
// Unlike classification this matches case-sensitively, so patterns can
// target exact firmware wording.
func (c *Classifier) Excluded(message string) bool {
	for _, p := range c.exclude {
		if p.Matches(message) {
			return true
		}
	}
	return false
}
