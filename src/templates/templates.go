package templates

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"os"
	"sort"
	"strings"
	"time"

	"git.automatex.dev/stem/stemweb/src/auth"
	"git.automatex.dev/stem/stemweb/src/config"
	"git.automatex.dev/stem/stemweb/src/logging"
	"git.automatex.dev/stem/stemweb/src/oops"
	"git.automatex.dev/stem/stemweb/src/stemurl"
	"git.automatex.dev/stem/stemweb/src/utils"
	"github.com/Masterminds/sprig"
)

const (
	Dayish   = time.Hour * 24
	Weekish  = Dayish * 7
	Monthish = Dayish * 30
	Yearish  = Dayish * 365
)

//go:embed src
var embeddedTemplateFs embed.FS
var embeddedTemplates map[string]*template.Template

//go:embed public
var PublicFS embed.FS

func getTemplatesFromFS(templateFS fs.ReadDirFS) (map[string]*template.Template, map[string]error) {
	templates := make(map[string]*template.Template)
	errs := make(map[string]error)

	files := utils.Must1(templateFS.ReadDir("src"))
	for _, f := range files {
		if !strings.HasSuffix(f.Name(), ".html") {
			continue
		}
		t := template.New(f.Name())
		t = t.Funcs(sprig.FuncMap())
		t = t.Funcs(StemTemplateFuncs)
		t, err := t.ParseFS(templateFS,
			"src/layouts/*",
			"src/include/*",
			"src/"+f.Name(),
		)
		if err != nil {
			errs[f.Name()] = err
			continue
		}

		templates[f.Name()] = t
	}

	return templates, errs
}

func Init() {
	var errs map[string]error
	type errEntry struct {
		name string
		err  error
	}

	embeddedTemplates, errs = getTemplatesFromFS(embeddedTemplateFs)
	if len(errs) > 0 {
		var errsList []errEntry
		for filename, err := range errs {
			errsList = append(errsList, errEntry{filename, err})
		}
		sort.Slice(errsList, func(i, j int) bool {
			return strings.Compare(errsList[i].name, errsList[j].name) < 0
		})
		for _, err := range errsList {
			logging.Error().Str("filename", err.name).Err(err.err).Msg("Failed to parse template")
		}
		panic("Failed to parse templates; see above")
	}
}

func GetTemplate(name string) *template.Template {
	var templates map[string]*template.Template
	if config.Config.DevConfig.LiveTemplates {
		var errs map[string]error
		templates, errs = getTemplatesFromFS(os.DirFS("src/templates").(fs.ReadDirFS))
		if errs[name] != nil {
			panic(oops.New(errs[name], "Error in template %s", name))
		}
	} else {
		if embeddedTemplates == nil {
			Init()
		}
		templates = embeddedTemplates
	}

	template, hasTemplate := templates[name]
	if !hasTemplate {
		panic(oops.New(nil, "Template not found: %s", name))
	}
	return template
}

// Public returns the static files served under /public.
func Public() fs.FS {
	if config.Config.DevConfig.LiveTemplates {
		return os.DirFS("src/templates/public")
	}
	return utils.Must1(fs.Sub(PublicFS, "public"))
}

var StemTemplateFuncs = template.FuncMap{
	"add": func(a int, b ...int) int {
		for _, num := range b {
			a += num
		}
		return a
	},
	"strjoin": func(strs ...string) string {
		return strings.Join(strs, "")
	},
	"absolutedate": func(t time.Time) string {
		return t.UTC().Format("January 2, 2006, 3:04pm")
	},
	"rfc3339": func(t time.Time) string {
		return t.UTC().Format(time.RFC3339)
	},
	"csrftoken": func(s *Session) template.HTML {
		if s == nil {
			return ""
		}
		return template.HTML(fmt.Sprintf(`<input type="hidden" name="%s" value="%s">`, auth.CSRFFieldName, template.HTMLEscapeString(s.CSRFToken)))
	},
	"relativedate": func(t time.Time) string {
		str := func(primary int, primaryName string, secondary int, secondaryName string) string {
			result := fmt.Sprintf("%d %s", primary, primaryName)
			if primary != 1 {
				result += "s"
			}
			if secondary > 0 {
				result += fmt.Sprintf(", %d %s", secondary, secondaryName)

				if secondary != 1 {
					result += "s"
				}
			}

			return result + " ago"
		}

		delta := time.Since(t)

		if delta < time.Minute {
			return "Less than a minute ago"
		} else if delta < time.Hour {
			return str(int(delta.Minutes()), "minute", 0, "")
		} else if delta < Dayish {
			return str(int(delta/time.Hour), "hour", int((delta%time.Hour)/time.Minute), "minute")
		} else if delta < Weekish {
			return str(int(delta/Dayish), "day", int((delta%Dayish)/time.Hour), "hour")
		} else if delta < Monthish {
			return str(int(delta/Weekish), "week", int((delta%Weekish)/Dayish), "day")
		} else if delta < Yearish {
			return str(int(delta/Monthish), "month", int((delta%Monthish)/Weekish), "week")
		} else {
			return str(int(delta/Yearish), "year", int((delta%Yearish)/Monthish), "month")
		}
	},
	"static": func(filepath string) string {
		return stemurl.BuildPublic(filepath)
	},
	"filesize": func(numBytes int64) string {
		scales := []string{
			" bytes",
			"kb",
			"mb",
			"gb",
		}
		num := float64(numBytes)
		scale := 0
		for num > 1024 && scale < len(scales)-1 {
			num /= 1024
			scale += 1
		}
		precision := 0
		if scale > 0 {
			precision = 2
		}
		return fmt.Sprintf("%.*f%s", precision, num, scales[scale])
	},
	"lastidx": func(idx int, l int) bool {
		return idx == l-1
	},
	// Only allows URLs we embed ourselves into iframe src attributes.
	"embedurl": func(s string) template.URL {
		if strings.HasPrefix(s, "https://www.youtube.com/embed/") {
			return template.URL(s)
		}
		return ""
	},
}
