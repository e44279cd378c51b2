// Package catalog loads the embedded operator-facing message catalogs and
// registers them with golang.org/x/text/message.
package catalog

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"go.yaml.in/yaml/v3"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// BaseLocale is the source locale every key must exist in.
const BaseLocale = "en-US"

type catalogFile struct {
	Locale    string            `yaml:"locale"`
	Namespace string            `yaml:"namespace"`
	Messages  map[string]string `yaml:"messages"`
}

// Bundle holds messages for every loaded locale.
type Bundle struct {
	locales map[string]map[string]string
	tags    []language.Tag
	names   []string
	matcher language.Matcher
}

//go:embed locales/*/*.yaml
var embeddedFS embed.FS

var defaultBundle = mustLoadAndRegisterEmbedded()

// Default returns the process-wide embedded bundle.
func Default() *Bundle {
	return defaultBundle
}

// LoadEmbedded loads the catalogs compiled into the binary.
func LoadEmbedded() (*Bundle, error) {
	return LoadFromFS(embeddedFS)
}

// LoadFromFS loads locales/<locale>/<namespace>.yaml files.
func LoadFromFS(catalogFS fs.FS) (*Bundle, error) {
	paths, err := fs.Glob(catalogFS, "locales/*/*.yaml")
	if err != nil {
		return nil, fmt.Errorf("glob locale catalogs: %w", err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no catalog files found")
	}
	sort.Strings(paths)

	b := &Bundle{locales: map[string]map[string]string{}}
	for _, p := range paths {
		data, err := fs.ReadFile(catalogFS, p)
		if err != nil {
			return nil, fmt.Errorf("read catalog %s: %w", p, err)
		}
		var file catalogFile
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("parse catalog %s: %w", p, err)
		}
		if err := b.addFile(p, file); err != nil {
			return nil, err
		}
	}

	base, ok := b.locales[BaseLocale]
	if !ok {
		return nil, fmt.Errorf("base locale %s is not defined in catalogs", BaseLocale)
	}
	for locale, messages := range b.locales {
		for key := range messages {
			if _, ok := base[key]; !ok {
				return nil, fmt.Errorf("locale %s: key %q missing from %s", locale, key, BaseLocale)
			}
		}
	}

	b.names = append(b.names, BaseLocale)
	for locale := range b.locales {
		if locale != BaseLocale {
			b.names = append(b.names, locale)
		}
	}
	sort.Strings(b.names[1:])
	for _, locale := range b.names {
		tag, err := language.Parse(locale)
		if err != nil {
			return nil, fmt.Errorf("parse locale tag %q: %w", locale, err)
		}
		b.tags = append(b.tags, tag)
	}
	b.matcher = language.NewMatcher(b.tags)
	return b, nil
}

func (b *Bundle) addFile(p string, file catalogFile) error {
	localeFromPath := path.Base(path.Dir(p))
	namespaceFromPath := strings.TrimSuffix(path.Base(p), path.Ext(p))

	locale := strings.TrimSpace(file.Locale)
	if locale != localeFromPath {
		return fmt.Errorf("catalog %s: locale %q must match path locale %q", p, locale, localeFromPath)
	}
	if ns := strings.TrimSpace(file.Namespace); ns != namespaceFromPath {
		return fmt.Errorf("catalog %s: namespace %q must match filename %q", p, ns, namespaceFromPath)
	}
	if len(file.Messages) == 0 {
		return fmt.Errorf("catalog %s: messages map is required", p)
	}

	messages, ok := b.locales[locale]
	if !ok {
		messages = map[string]string{}
		b.locales[locale] = messages
	}
	for key, value := range file.Messages {
		key = strings.TrimSpace(key)
		if key == "" {
			return fmt.Errorf("catalog %s: message key cannot be blank", p)
		}
		if !strings.HasPrefix(key, namespaceFromPath+".") {
			return fmt.Errorf("catalog %s: key %q must start with %q", p, key, namespaceFromPath+".")
		}
		if _, exists := messages[key]; exists {
			return fmt.Errorf("catalog %s: duplicate key %q in locale %q", p, key, locale)
		}
		messages[key] = value
	}
	return nil
}

// Register installs every message with x/text/message under its locale tag
// and the tag's base language.
func (b *Bundle) Register() error {
	if b == nil {
		return nil
	}
	for i, locale := range b.names {
		tags := []language.Tag{b.tags[i]}
		if base, conf := b.tags[i].Base(); conf != language.No {
			if baseTag, err := language.Parse(base.String()); err == nil && baseTag.String() != b.tags[i].String() {
				tags = append(tags, baseTag)
			}
		}
		for key, value := range b.locales[locale] {
			for _, tag := range tags {
				if err := message.SetString(tag, key, value); err != nil {
					return fmt.Errorf("register %s %q: %w", locale, key, err)
				}
			}
		}
	}
	return nil
}

// HasLocale reports whether locale was loaded exactly.
func (b *Bundle) HasLocale(locale string) bool {
	if b == nil {
		return false
	}
	_, ok := b.locales[strings.TrimSpace(locale)]
	return ok
}

// Locales lists loaded locales, base locale first.
func (b *Bundle) Locales() []string {
	if b == nil {
		return nil
	}
	return append([]string(nil), b.names...)
}

// Resolve maps a requested locale (e.g. "zh", "zh-Hans", "en") to the best
// loaded locale. ok is false when nothing matched and the base locale was
// chosen as a fallback.
func (b *Bundle) Resolve(requested string) (string, bool) {
	if b == nil || len(b.names) == 0 {
		return BaseLocale, false
	}
	if b.HasLocale(requested) {
		return strings.TrimSpace(requested), true
	}
	tag, err := language.Parse(strings.TrimSpace(requested))
	if err != nil {
		return BaseLocale, false
	}
	_, index, conf := b.matcher.Match(tag)
	if conf == language.No {
		return BaseLocale, false
	}
	return b.names[index], true
}

// Printer returns a message printer for the best match of locale.
func (b *Bundle) Printer(locale string) *message.Printer {
	resolved, _ := b.Resolve(locale)
	return message.NewPrinter(language.MustParse(resolved))
}

// Message returns one raw message value with base-locale fallback.
func (b *Bundle) Message(locale, key string) (string, bool) {
	if b == nil {
		return "", false
	}
	if value, ok := b.locales[strings.TrimSpace(locale)][key]; ok {
		return value, true
	}
	value, ok := b.locales[BaseLocale][key]
	return value, ok
}

func mustLoadAndRegisterEmbedded() *Bundle {
	bundle, err := LoadEmbedded()
	if err != nil {
		panic(err)
	}
	if err := bundle.Register(); err != nil {
		panic(err)
	}
	return bundle
}
