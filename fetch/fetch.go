/*
Package fetch downloads the sources of a font package, unpacks them and
verifies the font files found.

Sources are either archives (ZIP or tar.xz) or bare font files. All sources
of a package are unpacked into a single extraction root, which is then handed
to package locate.

Zip archives of Japanese vendors frequently carry Shift-JIS file names
without flagging them as such; names without the UTF-8 flag are decoded as
code page 932.

# License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.
*/
package fetch

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/npillmayer/fontpack"
	"github.com/npillmayer/schuko/tracing"
)

// tracer traces with key 'fontpack.build'
func tracer() tracing.Trace {
	return tracing.Select("fontpack.build")
}

// Kind is the kind of a downloaded file.
type Kind int

// Kinds of source files.
const (
	Unsupported Kind = iota
	Zip
	TarXz
	FontFile
)

// KindOf tells the kind of a file from its name.
func KindOf(filename string) Kind {
	name := strings.ToLower(filename)
	switch {
	case strings.HasSuffix(name, ".zip"):
		return Zip
	case strings.HasSuffix(name, ".tar.xz"):
		return TarXz
	}
	switch path.Ext(name) {
	case ".ttf", ".otf", ".ttc":
		return FontFile
	}
	return Unsupported
}

// Fetcher downloads and unpacks package sources.
type Fetcher struct {
	Client   *http.Client // defaults to http.DefaultClient
	Dir      string       // working directory for downloads and extraction
	Referer  string       // sent with every request, usually the package homepage
	download string
}

// New creates a fetcher working in dir.
func New(dir string) *Fetcher {
	return &Fetcher{Dir: dir}
}

// Root is the directory all sources are extracted to.
func (f *Fetcher) Root() string {
	return filepath.Join(f.Dir, "extracted")
}

// Fetch downloads every source of pkg and unpacks it below Root, which it
// returns.
func (f *Fetcher) Fetch(ctx context.Context, pkg *fontpack.Package) (string, error) {
	if f.Referer == "" {
		f.Referer = pkg.Homepage
	}
	f.download = filepath.Join(f.Dir, "downloads")
	for _, dir := range []string{f.download, f.Root()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fontpack.WrapError(err, fontpack.EINTERNAL, "cannot create %s", dir)
		}
	}
	for _, src := range pkg.Sources {
		file, err := f.Download(ctx, src.URL)
		if err != nil {
			return "", err
		}
		if err := Extract(file, f.Root()); err != nil {
			return "", err
		}
	}
	return f.Root(), nil
}

// Download fetches a URL into the download directory and returns the path
// of the file written. The file name is taken from the response's
// Content-Disposition header, or else from the final URL's path.
func (f *Fetcher) Download(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fontpack.WrapError(err, fontpack.EINVALID, "invalid source URL %s", rawURL)
	}
	if f.Referer != "" {
		req.Header.Set("Referer", f.Referer)
	}
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		tracer().Errorf("request for %s failed: %v", rawURL, err)
		return "", fontpack.WrapError(err, fontpack.ECONNECTION, "could not download %s", rawURL)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("response: %v", resp.Status)
		return "", fontpack.WrapError(err, fontpack.ECONNECTION, "could not download %s", rawURL)
	}
	name := responseFilename(resp)
	if KindOf(name) == Unsupported {
		return "", fontpack.WrapError(nil, fontpack.EINVALID, "%s is unsupported file.", name)
	}
	dir := f.download
	if dir == "" {
		dir = f.Dir
	}
	target := filepath.Join(dir, name)
	out, err := os.Create(target)
	if err != nil {
		return "", fontpack.WrapError(err, fontpack.EINTERNAL, "cannot create %s", target)
	}
	defer out.Close()
	n, err := io.Copy(out, resp.Body)
	if err != nil {
		return "", fontpack.WrapError(err, fontpack.ECONNECTION, "could not download %s", rawURL)
	}
	tracer().Infof("downloaded %s (%d bytes)", name, n)
	return target, out.Close()
}

func responseFilename(resp *http.Response) string {
	if cd := resp.Header.Get("Content-Disposition"); cd != "" {
		if _, params, err := mime.ParseMediaType(cd); err == nil {
			if name := path.Base(filepath.ToSlash(params["filename"])); name != "" && name != "." && name != "/" {
				return name
			}
		}
	}
	u := resp.Request.URL
	if u == nil {
		return ""
	}
	if p, err := url.PathUnescape(u.EscapedPath()); err == nil {
		return path.Base(p)
	}
	return path.Base(u.Path)
}
