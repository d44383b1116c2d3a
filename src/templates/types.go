package templates

type BaseData struct {
	Title       string
	BodyClasses []string
	Breadcrumbs []Breadcrumb
	Notices     []Notice

	CurrentUrl   string
	LoginPageUrl string

	Session *Session
	Header  Header
}

func (bd *BaseData) AddImmediateNotice(class, content string) {
	bd.Notices = append(bd.Notices, Notice{
		Class:   class,
		Content: content,
	})
}

type Header struct {
	HomepageUrl     string
	ForumListingUrl string
	BlogUrl         string
	LoginUrl        string
	LogoutUrl       string
}

// Notice classes are "success", "failure" and "warn"; see public/style.css.
type Notice struct {
	Content string
	Class   string
}

type Session struct {
	CSRFToken string
}

type Breadcrumb struct {
	Name, Url string
}

type Pagination struct {
	Current int
	Total   int

	FirstUrl    string
	LastUrl     string
	PreviousUrl string
	NextUrl     string
}

type ForumEditor struct {
	ID          string
	Title       string
	Description string
	PreviewUrl  string
	PreviewID   string
	Loading     bool
	Loaded      bool

	SubmitUrl      string
	PreviewPostUrl string
	CancelUrl      string
}

type ConfirmPrompt struct {
	Title       string
	Text        string
	ConfirmText string
	CancelText  string
}

type LessonVideo struct {
	EmbedUrl string
	Title    string
}

type BlogSummary struct {
	Title   string
	Excerpt string
	Image   string
}
