// Package media validates ISO images and uploads them to datastores.
package media

import (
	"context"
	"fmt"
	"log"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/kdomanski/iso9660"
	"github.com/vmware/govmomi/object"
	"github.com/vmware/govmomi/vim25/soap"

	"github.com/vctools/vctools/internal/config"
	"github.com/vctools/vctools/internal/output"
	"github.com/vctools/vctools/internal/vsphere"
)

// Uploader copies local ISO images into datastore folders over the
// vCenter file service.
type Uploader struct {
	client *vsphere.Client
}

// NewUploader returns an Uploader bound to a connected client.
func NewUploader(client *vsphere.Client) *Uploader {
	return &Uploader{client: client}
}

// Validate rejects files that are not ISO-9660 images before any
// bandwidth is spent on them.
func Validate(isoPath string) error {
	f, err := os.Open(isoPath)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", isoPath, err)
	}
	defer f.Close()

	img, err := iso9660.OpenImage(f)
	if err != nil {
		return config.Invalidf("%s is not an ISO-9660 image: %v", isoPath, err)
	}
	if _, err := img.RootDir(); err != nil {
		return config.Invalidf("%s is not an ISO-9660 image: %v", isoPath, err)
	}
	return nil
}

// Upload validates localPath and copies it to the dest folder on the
// named datastore. A failed transfer is retried once before giving up.
func (u *Uploader) Upload(ctx context.Context, localPath, datacenter, datastore, dest string) error {
	if err := Validate(localPath); err != nil {
		return err
	}
	info, err := os.Stat(localPath)
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", localPath, err)
	}

	ds, err := u.client.FindDatastore(ctx, datacenter, datastore)
	if err != nil {
		return err
	}

	remote := path.Join(strings.Trim(dest, "/"), filepath.Base(localPath))
	log.Printf("Uploading ISO: %s, file size: %s, remote location: [%s] %s",
		localPath, output.HumanSize(info.Size()), datastore, remote)

	if err := put(ctx, ds, localPath, remote); err != nil {
		log.Printf("Upload failed, retrying: %s", err)
		if err := put(ctx, ds, localPath, remote); err != nil {
			return fmt.Errorf("failed to upload %s: %w", localPath, err)
		}
	}

	log.Printf("Upload complete: [%s] %s", datastore, remote)
	return nil
}

func put(ctx context.Context, ds *object.Datastore, localPath, remote string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return err
	}
	defer f.Close()

	p := soap.DefaultUpload
	return ds.Upload(ctx, f, remote, &p)
}
