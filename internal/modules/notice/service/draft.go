package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"anoa.com/notifiq/internal/entity"
	noticeDto "anoa.com/notifiq/internal/modules/notice/dto"
	upload "anoa.com/notifiq/internal/modules/upload/service"
	"anoa.com/notifiq/pkg/apperror"
	"github.com/google/uuid"
)

// ImageUploader hosts one image and reports progress from 0 to 100.
type ImageUploader interface {
	Upload(ctx context.Context, file upload.ImageFile, progress func(percent int)) (entity.NoticeImage, error)
}

// Rewriter rewrites a description in the requested tone.
type Rewriter interface {
	Rewrite(ctx context.Context, text, tone string) (string, error)
}

// Submitter persists a finished draft.
type Submitter interface {
	Create(ctx context.Context, req noticeDto.NoticeRequest) (*entity.Notice, error)
	Update(ctx context.Context, noticeID uuid.UUID, req noticeDto.NoticeRequest) (*entity.Notice, error)
}

// ErrBusy is returned when a rewrite or submit is already running.
var ErrBusy = errors.New("draft is busy")

// FileResult is the outcome of one file in an AttachImages batch.
type FileResult struct {
	Name  string
	Image *entity.NoticeImage
	Err   error
}

// Draft is a notice being written or edited. It is owned by one author and
// not safe for concurrent use, except that Submitting may be read at any time.
type Draft struct {
	noticeID *uuid.UUID

	Title       string
	Description string
	Category    string
	Priority    string
	Color       string
	Links       []entity.NoticeLink
	Images      []entity.NoticeImage
	ExpiryDate  *time.Time

	pending   entity.NoticeLink
	editIndex int

	submitting chan struct{}
}

// NewDraft starts from existing when editing, from defaults otherwise.
func NewDraft(existing *entity.Notice) *Draft {
	d := &Draft{
		Category:   entity.CategoryGeneral,
		Priority:   entity.PriorityMedium,
		Color:      entity.ColorDefault,
		Links:      []entity.NoticeLink{},
		Images:     []entity.NoticeImage{},
		editIndex:  -1,
		submitting: make(chan struct{}, 1),
	}
	if existing == nil {
		return d
	}

	id := existing.ID
	d.noticeID = &id
	d.Title = existing.Title
	d.Description = existing.Description
	d.ExpiryDate = existing.ExpiryDate
	if existing.Category != "" {
		d.Category = existing.Category
	}
	if existing.Priority != "" {
		d.Priority = existing.Priority
	}
	if existing.Color != "" {
		d.Color = existing.Color
	}
	d.Links = append(d.Links, existing.Links...)
	d.Images = append(d.Images, existing.Images...)
	return d
}

// DraftFromRequest rebuilds a draft from a submitted form. noticeID is nil
// for a new notice.
func DraftFromRequest(noticeID *uuid.UUID, req noticeDto.NoticeRequest) *Draft {
	d := NewDraft(nil)
	d.noticeID = noticeID
	d.Title = req.Title
	d.Description = req.Description
	d.ExpiryDate = req.ExpiryDate
	if req.Category != "" {
		d.Category = req.Category
	}
	if req.Priority != "" {
		d.Priority = req.Priority
	}
	if req.Color != "" {
		d.Color = req.Color
	}
	for _, l := range req.Links {
		d.Links = append(d.Links, entity.NoticeLink{URL: l.URL, Name: l.Name})
	}
	for _, img := range req.Images {
		d.Images = append(d.Images, entity.NoticeImage{URL: img.URL, Name: img.Name})
	}
	d.SetPendingLink(req.PendingLink, req.PendingLinkName)
	return d
}

func (d *Draft) IsEdit() bool {
	return d.noticeID != nil
}

// Submitting reports whether a rewrite or submit is in flight.
func (d *Draft) Submitting() bool {
	return len(d.submitting) > 0
}

func (d *Draft) begin() error {
	select {
	case d.submitting <- struct{}{}:
		return nil
	default:
		return ErrBusy
	}
}

func (d *Draft) end() {
	<-d.submitting
}

// AttachImages validates every file first, then uploads the valid ones in
// order. A failed file is reported in its result and leaves the image list
// untouched; the other files still go through.
func (d *Draft) AttachImages(ctx context.Context, uploader ImageUploader, files []upload.ImageFile, progress func(name string, percent int)) []FileResult {
	results := make([]FileResult, len(files))
	for i, f := range files {
		results[i] = FileResult{Name: f.Name, Err: upload.ValidateImage(f)}
	}

	for i, f := range files {
		if results[i].Err != nil {
			continue
		}

		last := -1
		name := f.Name
		img, err := uploader.Upload(ctx, f, func(p int) {
			if p < 0 || p > 100 || p <= last {
				return
			}
			last = p
			if progress != nil {
				progress(name, p)
			}
		})
		if err != nil {
			results[i].Err = err
			continue
		}

		d.Images = append(d.Images, img)
		results[i].Image = &img
	}
	return results
}

func (d *Draft) RemoveImage(i int) {
	if i < 0 || i >= len(d.Images) {
		return
	}
	d.Images = append(d.Images[:i], d.Images[i+1:]...)
}

// SetPendingLink updates the link input. Clearing the URL cancels an edit
// in progress.
func (d *Draft) SetPendingLink(url, name string) {
	d.pending = entity.NoticeLink{URL: url, Name: name}
	if strings.TrimSpace(url) == "" {
		d.editIndex = -1
	}
}

func (d *Draft) PendingLink() entity.NoticeLink {
	return d.pending
}

// EditingIndex returns the link being edited, or -1.
func (d *Draft) EditingIndex() int {
	return d.editIndex
}

// CommitLink appends the pending link, or replaces the link being edited in
// place. An empty URL is ignored.
func (d *Draft) CommitLink() bool {
	if strings.TrimSpace(d.pending.URL) == "" {
		return false
	}

	if d.editIndex >= 0 && d.editIndex < len(d.Links) {
		d.Links[d.editIndex] = d.pending
	} else {
		d.Links = append(d.Links, d.pending)
	}
	d.pending = entity.NoticeLink{}
	d.editIndex = -1
	return true
}

// EditLink loads link i into the pending input.
func (d *Draft) EditLink(i int) {
	if i < 0 || i >= len(d.Links) {
		return
	}
	d.pending = d.Links[i]
	d.editIndex = i
}

func (d *Draft) RemoveLink(i int) {
	if i < 0 || i >= len(d.Links) {
		return
	}
	d.Links = append(d.Links[:i], d.Links[i+1:]...)

	switch {
	case d.editIndex == i:
		d.editIndex = -1
		d.pending = entity.NoticeLink{}
	case d.editIndex > i:
		d.editIndex--
	}
}

// Rewrite replaces the description with an AI rewrite. On failure the
// description is left as it was.
func (d *Draft) Rewrite(ctx context.Context, rw Rewriter, tone string) error {
	if strings.TrimSpace(d.Description) == "" {
		return fmt.Errorf("%w: write a description first", apperror.ErrInvalidInput)
	}
	if err := d.begin(); err != nil {
		return err
	}
	defer d.end()

	text, err := rw.Rewrite(ctx, d.Description, tone)
	if err != nil {
		return err
	}
	d.Description = text
	return nil
}

// Request returns the field set to persist. An unconfirmed pending link is
// included at the end of the link list; the draft itself is left untouched.
func (d *Draft) Request() noticeDto.NoticeRequest {
	links := d.withPending()
	req := noticeDto.NoticeRequest{
		Title:       d.Title,
		Description: d.Description,
		Category:    d.Category,
		Priority:    d.Priority,
		Color:       d.Color,
		ExpiryDate:  d.ExpiryDate,
		Links:       make([]noticeDto.LinkInput, 0, len(links)),
		Images:      make([]noticeDto.ImageInput, 0, len(d.Images)),
	}
	for _, l := range links {
		req.Links = append(req.Links, noticeDto.LinkInput{URL: l.URL, Name: l.Name})
	}
	for _, img := range d.Images {
		req.Images = append(req.Images, noticeDto.ImageInput{URL: img.URL, Name: img.Name})
	}
	return req
}

func (d *Draft) withPending() []entity.NoticeLink {
	url := strings.TrimSpace(d.pending.URL)
	if url == "" {
		return d.Links
	}
	name := strings.TrimSpace(d.pending.Name)
	if name == "" {
		name = url
	}
	links := make([]entity.NoticeLink, 0, len(d.Links)+1)
	links = append(links, d.Links...)
	return append(links, entity.NoticeLink{URL: url, Name: name})
}

// Submit validates and persists the draft: an insert for a new notice, a
// full overwrite when editing. The pending link joins the link list only
// once the notice is saved.
func (d *Draft) Submit(ctx context.Context, s Submitter) (*entity.Notice, error) {
	req := d.Request()
	ApplyDefaults(&req)
	if err := Validate(req); err != nil {
		return nil, err
	}

	if err := d.begin(); err != nil {
		return nil, err
	}
	defer d.end()

	var (
		notice *entity.Notice
		err    error
	)
	if d.noticeID == nil {
		notice, err = s.Create(ctx, req)
	} else {
		notice, err = s.Update(ctx, *d.noticeID, req)
	}
	if err != nil {
		return nil, err
	}

	d.Links = d.withPending()
	d.pending = entity.NoticeLink{}
	d.editIndex = -1
	return notice, nil
}

// ForViewer adapts the notice service to a Submitter acting as viewer.
func ForViewer(svc NoticeService, viewer entity.Viewer) Submitter {
	return viewerSubmitter{svc: svc, viewer: viewer}
}

type viewerSubmitter struct {
	svc    NoticeService
	viewer entity.Viewer
}

func (v viewerSubmitter) Create(ctx context.Context, req noticeDto.NoticeRequest) (*entity.Notice, error) {
	return v.svc.Create(ctx, v.viewer, req)
}

func (v viewerSubmitter) Update(ctx context.Context, noticeID uuid.UUID, req noticeDto.NoticeRequest) (*entity.Notice, error) {
	return v.svc.Update(ctx, v.viewer, noticeID, req)
}
