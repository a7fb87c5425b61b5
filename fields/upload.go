// Package fields holds form field types that need more than binding, such
// as file uploads that are stored before the model is saved.
package fields

import (
	"context"
	"fmt"
	"mime/multipart"
	"path"
	"path/filepath"
	"reflect"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/thisissoon/velox/internal/utils"
	"github.com/thisissoon/velox/mixins"
)

// MediaRootEnv names the fallback absolute upload directory.
const MediaRootEnv = "MEDIA_ROOT"

// UploadFileField stores an uploaded file and sets the model's string
// field to its relative path. Tag it `form:"-" file:"<key>"` on a form.
type UploadFileField struct {
	// UploadTo is a sub directory of both bases.
	UploadTo string
	// AbsoluteBase defaults to $MEDIA_ROOT.
	AbsoluteBase string
	// RelativeBase prefixes the path stored on the model.
	RelativeBase string
	// KeepOrphans leaves the previous file in place when it is replaced.
	KeepOrphans bool
	// Storage defaults to DiskStorage.
	Storage Storage
	Now     func() time.Time

	// Current is the relative path held by the model when the form was
	// built.
	Current string

	file *multipart.FileHeader
}

// ReceiveFile implements forms.FileReceiver.
func (u *UploadFileField) ReceiveFile(fh *multipart.FileHeader) { u.file = fh }

// File returns the uploaded file, or nil.
func (u *UploadFileField) File() *multipart.FileHeader { return u.file }

// LoadFromObj implements forms.ObjLoader.
func (u *UploadFileField) LoadFromObj(obj any, name string) {
	if v, ok := stringField(obj, name); ok {
		u.Current = v
	}
}

func (u *UploadFileField) storage() Storage {
	if u.Storage == nil {
		return DiskStorage{}
	}
	return u.Storage
}

// AbsoluteDir is where files are written.
func (u *UploadFileField) AbsoluteDir() (string, error) {
	base := u.AbsoluteBase
	if base == "" {
		base = utils.GetEnv(MediaRootEnv, "", nil)
	}
	if base == "" {
		return "", mixins.NotImplemented("unable to get an absolute path to save files to, either set AbsoluteBase or " + MediaRootEnv)
	}
	return filepath.Join(base, u.UploadTo), nil
}

// RelativeDir prefixes the paths stored on models.
func (u *UploadFileField) RelativeDir() string {
	return path.Join(u.RelativeBase, u.UploadTo)
}

// Paths returns the absolute target, the relative path and the final file
// name for the upload. An existing file gets a "_<unix time>" suffix.
func (u *UploadFileField) Paths(ctx context.Context) (abs, rel, name string, err error) {
	if u.file == nil {
		return "", "", "", fmt.Errorf("no file uploaded")
	}
	name = SecureFilename(u.file.Filename)
	if name == "" {
		return "", "", "", fmt.Errorf("invalid file name %q", u.file.Filename)
	}
	dir, err := u.AbsoluteDir()
	if err != nil {
		return "", "", "", err
	}
	abs = filepath.Join(dir, name)
	exists, err := u.storage().Exists(ctx, abs)
	if err != nil {
		return "", "", "", err
	}
	if exists {
		now := time.Now
		if u.Now != nil {
			now = u.Now
		}
		ext := filepath.Ext(name)
		name = fmt.Sprintf("%s_%d%s", strings.TrimSuffix(name, ext), now().UTC().Unix(), ext)
		abs = filepath.Join(dir, name)
	}
	return abs, path.Join(u.RelativeDir(), name), name, nil
}

// PopulateObj implements forms.ObjPopulator. Without an upload the model
// is left untouched.
func (u *UploadFileField) PopulateObj(obj any, name string) error {
	if u.file == nil {
		return nil
	}
	ctx := context.Background()
	abs, rel, _, err := u.Paths(ctx)
	if err != nil {
		return err
	}
	src, err := u.file.Open()
	if err != nil {
		return fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()
	if err := u.storage().Save(ctx, abs, src); err != nil {
		return err
	}
	if !u.KeepOrphans {
		if orig, ok := stringField(obj, name); ok && orig != "" && orig != rel {
			if err := u.Delete(ctx, orig); err != nil {
				return err
			}
		}
	}
	return setStringField(obj, name, rel)
}

// Delete removes the file stored under relativePath.
func (u *UploadFileField) Delete(ctx context.Context, relativePath string) error {
	dir, err := u.AbsoluteDir()
	if err != nil {
		return err
	}
	return u.storage().Delete(ctx, filepath.Join(dir, path.Base(relativePath)))
}

// SecureFilename reduces name to ASCII letters, digits, '.', '-' and '_',
// with whitespace and path separators turned into '_'.
func SecureFilename(name string) string {
	name = norm.NFKD.String(name)
	var b strings.Builder
	for _, r := range name {
		switch {
		case r > unicode.MaxASCII:
		case r == '/' || r == '\\' || unicode.IsSpace(r):
			b.WriteByte(' ')
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '.' || r == '-' || r == '_':
			b.WriteRune(r)
		}
	}
	return strings.Trim(strings.Join(strings.Fields(b.String()), "_"), "._")
}

func stringField(obj any, name string) (string, bool) {
	rv := reflect.ValueOf(obj)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return "", false
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return "", false
	}
	fv := rv.FieldByName(name)
	switch {
	case !fv.IsValid():
		return "", false
	case fv.Kind() == reflect.String:
		return fv.String(), true
	case fv.Kind() == reflect.Pointer && fv.Type().Elem().Kind() == reflect.String:
		if fv.IsNil() {
			return "", true
		}
		return fv.Elem().String(), true
	}
	return "", false
}

func setStringField(obj any, name, val string) error {
	rv := reflect.ValueOf(obj)
	if rv.Kind() != reflect.Pointer || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("upload target %T is not a struct pointer", obj)
	}
	fv := rv.Elem().FieldByName(name)
	if !fv.IsValid() || !fv.CanSet() {
		return fmt.Errorf("%w: %s", mixins.ErrUnknownField, name)
	}
	switch {
	case fv.Kind() == reflect.String:
		fv.SetString(val)
	case fv.Kind() == reflect.Pointer && fv.Type().Elem().Kind() == reflect.String:
		p := reflect.New(fv.Type().Elem())
		p.Elem().SetString(val)
		fv.Set(p)
	default:
		return fmt.Errorf("upload target field %s is not a string", name)
	}
	return nil
}
