package service

import (
	"fmt"
	"time"

	"anoa.com/notifiq/internal/entity"
	"anoa.com/notifiq/pkg/logger"
	"anoa.com/notifiq/pkg/markdown"
	"github.com/google/uuid"
	"github.com/meilisearch/meilisearch-go"
	"go.uber.org/zap"
)

const (
	noticeIndex    = "notices"
	signingKeyName = "TenantTokenSigner"
)

type MeiliSearchService interface {
	IndexNotice(notice *entity.Notice) error
	DeleteNotice(id string) error
	GenerateSearchToken(viewer entity.Viewer) (string, error)
}

type meiliSearchService struct {
	client        meilisearch.ServiceManager
	signingKeyUID string
	signingKey    string
	renderer      *markdown.Renderer
	log           *zap.Logger
}

func NewMeiliSearchService(client meilisearch.ServiceManager, renderer *markdown.Renderer) MeiliSearchService {
	s := &meiliSearchService{
		client:   client,
		renderer: renderer,
		log:      logger.WithModule("search"),
	}
	s.initIndexes()
	s.initSigningKey()
	return s
}

func (s *meiliSearchService) initSigningKey() {
	resp, err := s.client.GetKeys(&meilisearch.KeysQuery{
		Limit: 20,
	})
	if err != nil {
		s.log.Warn("failed to get meilisearch keys", zap.Error(err))
		return
	}

	for _, key := range resp.Results {
		if key.Name == signingKeyName {
			s.signingKeyUID = key.UID
			s.signingKey = key.Key
			s.log.Info("found existing meilisearch signing key")
			return
		}
	}

	key, err := s.client.CreateKey(&meilisearch.Key{
		Description: "Key to sign tenant tokens",
		Name:        signingKeyName,
		Actions:     []string{"search"},
		Indexes:     []string{noticeIndex},
		ExpiresAt:   time.Now().AddDate(100, 0, 0),
	})
	if err != nil {
		s.log.Warn("failed to create signing key", zap.Error(err))
		return
	}

	s.signingKeyUID = key.UID
	s.signingKey = key.Key
	s.log.Info("created new meilisearch signing key")
}

func (s *meiliSearchService) initIndexes() {
	filterable := []any{"college_id", "category", "priority"}
	if _, err := s.client.Index(noticeIndex).UpdateFilterableAttributes(&filterable); err != nil {
		s.log.Warn("failed to update notices filterable attributes", zap.Error(err))
	}

	sortable := []string{"created_at"}
	if _, err := s.client.Index(noticeIndex).UpdateSortableAttributes(&sortable); err != nil {
		s.log.Warn("failed to update notices sortable attributes", zap.Error(err))
	}
}

type noticeDoc struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Priority    string `json:"priority"`
	CollegeID   string `json:"college_id"`
	AuthorName  string `json:"author_name"`
	CreatedAt   int64  `json:"created_at"`
	ExpiresAt   int64  `json:"expires_at,omitempty"`
}

func buildNoticeDoc(renderer *markdown.Renderer, notice *entity.Notice) noticeDoc {
	doc := noticeDoc{
		ID:          notice.ID.String(),
		Title:       notice.Title,
		Description: renderer.PlainText(notice.Description),
		Category:    notice.Category,
		Priority:    notice.Priority,
		CollegeID:   notice.CollegeID.String(),
		AuthorName:  notice.AuthorName,
		CreatedAt:   notice.CreatedAt.Unix(),
	}
	if notice.ExpiryDate != nil {
		doc.ExpiresAt = notice.ExpiryDate.Unix()
	}
	return doc
}

func (s *meiliSearchService) IndexNotice(notice *entity.Notice) error {
	doc := buildNoticeDoc(s.renderer, notice)

	task, err := s.client.Index(noticeIndex).AddDocuments([]noticeDoc{doc}, strPtr("id"))
	if err != nil {
		return fmt.Errorf("failed to index notice %s: %w", notice.ID, err)
	}
	s.log.Debug("indexed notice", zap.String("notice_id", doc.ID), zap.Int64("task_uid", task.TaskUID))
	return nil
}

func (s *meiliSearchService) DeleteNotice(id string) error {
	_, err := s.client.Index(noticeIndex).DeleteDocument(id)
	return err
}

// searchRules scopes a tenant token to the viewer's college. Super admins
// search every college.
func searchRules(viewer entity.Viewer) (map[string]any, error) {
	if viewer.IsSuperAdmin() {
		return map[string]any{noticeIndex: map[string]any{"filter": nil}}, nil
	}
	if !viewer.HasCollege() {
		return nil, fmt.Errorf("viewer has no college")
	}
	return map[string]any{
		noticeIndex: map[string]any{
			"filter": fmt.Sprintf("college_id = '%s'", collegeString(viewer.CollegeID)),
		},
	}, nil
}

func collegeString(id *uuid.UUID) string {
	if id == nil {
		return ""
	}
	return id.String()
}

func (s *meiliSearchService) GenerateSearchToken(viewer entity.Viewer) (string, error) {
	if s.signingKeyUID == "" || s.signingKey == "" {
		return "", fmt.Errorf("signing key not initialized")
	}

	rules, err := searchRules(viewer)
	if err != nil {
		return "", err
	}

	return s.client.GenerateTenantToken(s.signingKeyUID, rules, &meilisearch.TenantTokenOptions{
		APIKey:    s.signingKey,
		ExpiresAt: time.Now().Add(24 * time.Hour),
	})
}

func strPtr(s string) *string {
	return &s
}
