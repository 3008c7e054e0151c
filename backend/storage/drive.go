package storage

import (
	"context"
	"os"

	"github.com/pkg/errors"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	drive "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

type DriveConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	RefreshToken string
	FolderID     string
	// APIEndpoint and TokenEndpoint override Google's endpoints.
	APIEndpoint   string
	TokenEndpoint *oauth2.Endpoint
}

// Drive stores files in a Google Drive folder using an offline refresh token.
type Drive struct {
	files    *drive.FilesService
	folderID string
}

func NewDrive(ctx context.Context, cfg DriveConfig) (*Drive, error) {
	endpoint := google.Endpoint
	if cfg.TokenEndpoint != nil {
		endpoint = *cfg.TokenEndpoint
	}
	oc := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURI,
		Scopes:       []string{drive.DriveFileScope},
		Endpoint:     endpoint,
	}

	opts := []option.ClientOption{option.WithHTTPClient(oc.Client(ctx, &oauth2.Token{RefreshToken: cfg.RefreshToken}))}
	if cfg.APIEndpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.APIEndpoint))
	}
	srv, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "create drive service")
	}
	return &Drive{files: srv.Files, folderID: cfg.FolderID}, nil
}

func (d *Drive) Upload(ctx context.Context, localPath, name string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", errors.Wrap(err, "open staged file")
	}
	defer f.Close()

	meta := &drive.File{Name: name}
	if d.folderID != "" {
		meta.Parents = []string{d.folderID}
	}
	created, err := d.files.Create(meta).
		Media(f, googleapi.ContentType(contentTypeOf(name))).
		Fields("id").
		Context(ctx).
		Do()
	if err != nil {
		return "", errors.Wrap(err, "drive upload")
	}
	if created.Id == "" {
		return "", errors.New("drive upload: empty file id")
	}
	return "https://drive.google.com/uc?id=" + created.Id, nil
}
