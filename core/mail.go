package core

import (
	"bytes"
	htmltmpl "html/template"
	"io/fs"
	"net/mail"
	"strings"
	"sync"
	texttmpl "text/template"

	"github.com/pkg/errors"
)

type (
	tmplCacheEntry map[string]interface{}    // {ext: *Template}
	tmplCache      map[string]tmplCacheEntry // {name: {tmplCacheEntry}}

	// Templates holds the parsed email templates found under a templates FS.
	Templates struct {
		fsys  fs.FS
		dir   string
		debug bool

		once  sync.Once
		cache tmplCache
		err   error
	}

	EmailMessage struct {
		To      []mail.Address
		Cc      []mail.Address
		Bcc     []mail.Address
		Subject string
		BodyStr string // simple text/plain, non-templated content

		// templated contents
		TemplateName string // without ext
		TemplateData interface{}
		TextContent  string
		HTMLContent  string
	}

	ContextData struct {
		FrontendBaseURL string
		Data            interface{}
	}

	// EmailService is any service that can send emails
	EmailService interface {
		// SendMessages sends messages concurrently
		SendMessages(messages ...*EmailMessage)
	}
)

// NewTemplates returns lazily parsed templates from `dir` in fsys.
// Every "<name>.txt" and "<name>.gohtml" is parsed along with "_base.txt" / "_base.gohtml".
func NewTemplates(fsys fs.FS, dir string, debug bool) *Templates {
	return &Templates{fsys: fsys, dir: dir, debug: debug}
}

func (t *Templates) parse() {
	t.cache = make(tmplCache)

	fps, err := fs.Glob(t.fsys, t.dir+"/*")
	if err != nil {
		t.err = errors.Wrap(err, "listing templates")
		return
	}

	for _, fp := range fps {
		fname := fp[strings.LastIndex(fp, "/")+1:]
		dot := strings.LastIndex(fname, ".")
		if dot < 0 || strings.HasPrefix(fname, "_") {
			continue
		}
		name, ext := fname[:dot], fname[dot:]
		if !(ext == ".txt" || ext == ".gohtml") {
			continue
		}
		entry, ok := t.cache[name]
		if !ok {
			entry = make(tmplCacheEntry)
			t.cache[name] = entry
		}
		if ext == ".txt" {
			tmpl, err := texttmpl.ParseFS(t.fsys, t.dir+"/_base.txt", fp)
			if err != nil {
				t.err = errors.Wrapf(err, "parsing %s", fp)
				return
			}
			if t.debug {
				tmpl = tmpl.Option("missingkey=error")
			}
			entry[ext] = tmpl
		} else {
			tmpl, err := htmltmpl.ParseFS(t.fsys, t.dir+"/_base.gohtml", fp)
			if err != nil {
				t.err = errors.Wrapf(err, "parsing %s", fp)
				return
			}
			if t.debug {
				tmpl = tmpl.Option("missingkey=error")
			}
			entry[ext] = tmpl
		}
	}
}

func (t *Templates) get(name, ext string) (interface{}, bool, error) {
	t.once.Do(t.parse) // only parse once, on first use
	if t.err != nil {
		return nil, false, t.err
	}
	entry, ok := t.cache[name]
	if !ok {
		return nil, false, nil
	}
	tmpl, ok := entry[ext]
	return tmpl, ok, nil
}

// Render fills in the text and HTML contents of msg.
func (t *Templates) Render(msg *EmailMessage, frontendBaseURL string) error {
	if msg.BodyStr != "" {
		msg.TextContent = msg.BodyStr
		return nil
	}
	if msg.TemplateName == "" {
		return nil
	}
	data := ContextData{FrontendBaseURL: frontendBaseURL, Data: msg.TemplateData}

	if tmpl, ok, err := t.get(msg.TemplateName, ".txt"); err != nil {
		return err
	} else if ok {
		var buff bytes.Buffer
		if err := tmpl.(*texttmpl.Template).ExecuteTemplate(&buff, "_base.txt", data); err != nil {
			return errors.Wrap(err, "rendering text")
		}
		msg.TextContent = buff.String()
	}

	if tmpl, ok, err := t.get(msg.TemplateName, ".gohtml"); err != nil {
		return err
	} else if ok {
		var buff bytes.Buffer
		if err := tmpl.(*htmltmpl.Template).ExecuteTemplate(&buff, "_base.gohtml", data); err != nil {
			return errors.Wrap(err, "rendering html")
		}
		msg.HTMLContent = buff.String()
	}
	return nil
}

func (m *EmailMessage) HasRecipients() bool { return len(m.To) > 0 }
func (m *EmailMessage) HasContent() bool    { return (m.TextContent != "") || (m.HTMLContent != "") }
