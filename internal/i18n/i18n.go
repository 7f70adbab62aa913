// Package i18n localizes the few human-readable lines the CLI prints.
package i18n

import (
	"os"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// DefaultLang is the fallback language
var DefaultLang = language.English

// SupportedLangs are the languages we support
var SupportedLangs = []language.Tag{
	language.English,
	language.German,
}

var matcher = language.NewMatcher(SupportedLangs)

// Message keys. The English text doubles as the key.
const (
	MsgNoChannels    = "no channels found in %s\n"
	MsgSaved         = "saved %s for channel %q\n"
	MsgReset         = "reset %d fields of channel %q to their defaults\n"
	MsgCheckOK       = "%s is in canonical form\n"
	MsgCheckDiffers  = "%s differs from its canonical form\n"
	MsgCopied        = "copied %d channels to %s\n"
	MsgConfigValid   = "%s is valid\n"
	MsgConfigReload  = "configuration reloaded from %s\n"
	MsgDefaultsMoved = "channel %q: %s now %v\n"
)

func init() {
	de := language.German
	for key, text := range map[string]string{
		MsgNoChannels:    "keine Kanäle in %s gefunden\n",
		MsgSaved:         "%s für Kanal %q gespeichert\n",
		MsgReset:         "%d Felder von Kanal %q auf Standardwerte zurückgesetzt\n",
		MsgCheckOK:       "%s ist in kanonischer Form\n",
		MsgCheckDiffers:  "%s weicht von der kanonischen Form ab\n",
		MsgCopied:        "%d Kanäle nach %s kopiert\n",
		MsgConfigValid:   "%s ist gültig\n",
		MsgConfigReload:  "Konfiguration aus %s neu geladen\n",
		MsgDefaultsMoved: "Kanal %q: %s ist jetzt %v\n",
	} {
		_ = message.SetString(de, key, text)
	}
}

// MatchLanguage returns the best matching language for a locale or
// Accept-Language style string.
func MatchLanguage(lang string) language.Tag {
	tags, _, _ := language.ParseAcceptLanguage(lang)
	tag, _, _ := matcher.Match(tags...)
	return tag
}

// NewPrinter returns a message printer for the given language
func NewPrinter(tag language.Tag) *message.Printer {
	return message.NewPrinter(tag)
}

// NewCLIPrinter returns a printer for the locale in LC_ALL, LC_MESSAGES or
// LANG, in that order.
func NewCLIPrinter() *message.Printer {
	return NewPrinter(localeTag(os.Getenv))
}

func localeTag(getenv func(string) string) language.Tag {
	var lang string
	for _, key := range []string{"LC_ALL", "LC_MESSAGES", "LANG"} {
		if lang = getenv(key); lang != "" {
			break
		}
	}
	if lang == "" || lang == "C" || lang == "POSIX" {
		return DefaultLang
	}

	// en_US.UTF-8@euro -> en_US
	if i := strings.IndexAny(lang, ".@"); i != -1 {
		lang = lang[:i]
	}
	lang = strings.ReplaceAll(lang, "_", "-")

	tag, err := language.Parse(lang)
	if err != nil {
		return MatchLanguage(lang)
	}
	tag, _, _ = matcher.Match(tag)
	return tag
}
