// Package mongostore keeps reports and their version log in MongoDB.
package mongostore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"reports/internal/content"
	"reports/internal/domain"
)

const (
	reportsCollection  = "reports"
	versionsCollection = "report_versions"
	defaultDatabase    = "reports"
)

// Config addresses the MongoDB deployment.
type Config struct {
	URI      string
	Host     string
	Port     int
	User     string
	Password string
	Database string
}

// BuildURI returns the connection URI and database name for c.
func (c Config) BuildURI() (uri, database string) {
	database = c.Database
	if c.URI != "" || strings.HasPrefix(c.Host, "mongodb://") || strings.HasPrefix(c.Host, "mongodb+srv://") {
		uri = c.URI
		if uri == "" {
			uri = c.Host
		}
		// Replace <password> placeholder commonly found in Atlas connection strings
		if c.Password != "" {
			uri = strings.ReplaceAll(uri, "<password>", c.Password)
			uri = strings.ReplaceAll(uri, "<db_password>", c.Password)
		}
		if database == "" {
			database = databaseFromURI(uri)
		}
	} else {
		port := c.Port
		if port == 0 {
			port = 27017
		}
		host := c.Host
		if host == "" {
			host = "localhost"
		}
		if c.User != "" {
			uri = fmt.Sprintf("mongodb://%s:%s@%s:%d", c.User, c.Password, host, port)
		} else {
			uri = fmt.Sprintf("mongodb://%s:%d", host, port)
		}
	}
	if database == "" {
		database = defaultDatabase
	}
	return uri, database
}

// databaseFromURI extracts the path segment of user:pass@host/DB?params.
func databaseFromURI(uri string) string {
	for _, prefix := range []string{"mongodb+srv://", "mongodb://"} {
		if strings.HasPrefix(uri, prefix) {
			uri = uri[len(prefix):]
			break
		}
	}
	if at := strings.LastIndex(uri, "@"); at != -1 {
		uri = uri[at+1:]
	}
	slash := strings.Index(uri, "/")
	if slash == -1 {
		return ""
	}
	path := uri[slash+1:]
	if q := strings.Index(path, "?"); q != -1 {
		path = path[:q]
	}
	return path
}

type reportDoc struct {
	ID          string     `bson:"_id"`
	Title       string     `bson:"title"`
	TreeJSON    string     `bson:"tree_json"`
	CreatedAt   time.Time  `bson:"created_at"`
	UpdatedAt   time.Time  `bson:"updated_at"`
	LastSavedAt *time.Time `bson:"last_saved_at,omitempty"`
}

type versionDoc struct {
	ID        string    `bson:"_id"`
	ReportID  string    `bson:"report_id"`
	Label     string    `bson:"label"`
	TreeJSON  string    `bson:"tree_json"`
	CreatedAt time.Time `bson:"created_at"`
	Seq       int64     `bson:"seq"`
}

// Store implements domain.ReportStore on MongoDB.
type Store struct {
	client *mongo.Client
	db     *mongo.Database

	mu      sync.Mutex
	lastSeq int64
}

var _ domain.ReportStore = (*Store)(nil)

// Open connects, pings and ensures the version index.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	uri, dbName := cfg.BuildURI()
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	s := &Store{client: client, db: client.Database(dbName)}
	_, err = s.versions().Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "report_id", Value: 1}, {Key: "seq", Value: 1}},
	})
	if err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("create version index: %w", err)
	}
	return s, nil
}

// Close disconnects the client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *Store) reports() *mongo.Collection  { return s.db.Collection(reportsCollection) }
func (s *Store) versions() *mongo.Collection { return s.db.Collection(versionsCollection) }

// nextSeq orders versions appended within the same instant.
func (s *Store) nextSeq() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	seq := time.Now().UnixNano()
	if seq <= s.lastSeq {
		seq = s.lastSeq + 1
	}
	s.lastSeq = seq
	return seq
}

func (s *Store) LoadReport(ctx context.Context, id string) (*domain.Report, error) {
	var doc reportDoc
	err := s.reports().FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("load report %s: %w", id, domain.ErrReportNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load report: %w", err)
	}
	return reportFromDoc(doc)
}

func (s *Store) SaveReport(ctx context.Context, r *domain.Report) error {
	doc, err := reportToDoc(r)
	if err != nil {
		return fmt.Errorf("save report: %w", err)
	}
	_, err = s.reports().ReplaceOne(ctx, bson.D{{Key: "_id", Value: r.ID}}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("save report: %w", err)
	}
	return nil
}

func (s *Store) ListReports(ctx context.Context) ([]domain.ReportSummary, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "updated_at", Value: -1}, {Key: "_id", Value: 1}}).
		SetProjection(bson.D{{Key: "tree_json", Value: 0}})
	cur, err := s.reports().Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	var docs []reportDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	out := make([]domain.ReportSummary, 0, len(docs))
	for _, d := range docs {
		out = append(out, domain.ReportSummary{
			ID:          d.ID,
			Title:       d.Title,
			CreatedAt:   d.CreatedAt,
			UpdatedAt:   d.UpdatedAt,
			LastSavedAt: d.LastSavedAt,
		})
	}
	return out, nil
}

func (s *Store) DeleteReport(ctx context.Context, id string) error {
	res, err := s.reports().DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return fmt.Errorf("delete report: %w", err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("delete report %s: %w", id, domain.ErrReportNotFound)
	}
	if _, err := s.versions().DeleteMany(ctx, bson.D{{Key: "report_id", Value: id}}); err != nil {
		return fmt.Errorf("delete versions: %w", err)
	}
	return nil
}

func (s *Store) AppendVersion(ctx context.Context, v *domain.Version) error {
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now().UTC()
	}
	doc, err := versionToDoc(v, s.nextSeq())
	if err != nil {
		return fmt.Errorf("append version: %w", err)
	}
	if _, err := s.versions().InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("append version: %w", err)
	}
	return nil
}

func (s *Store) ListVersions(ctx context.Context, reportID string) ([]domain.Version, error) {
	cur, err := s.versions().Find(ctx,
		bson.D{{Key: "report_id", Value: reportID}},
		options.Find().SetSort(bson.D{{Key: "seq", Value: 1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	var docs []versionDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	out := make([]domain.Version, 0, len(docs))
	for _, d := range docs {
		v, err := versionFromDoc(d)
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	return out, nil
}

func (s *Store) GetVersion(ctx context.Context, versionID string) (*domain.Version, error) {
	var doc versionDoc
	err := s.versions().FindOne(ctx, bson.D{{Key: "_id", Value: versionID}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("get version %s: %w", versionID, domain.ErrVersionNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get version: %w", err)
	}
	return versionFromDoc(doc)
}

// PruneVersions deletes unlabeled versions older than the newest keep.
func (s *Store) PruneVersions(ctx context.Context, reportID string, keep int) error {
	if keep < 0 {
		keep = 0
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "seq", Value: -1}}).
		SetSkip(int64(keep)).
		SetProjection(bson.D{{Key: "_id", Value: 1}})
	cur, err := s.versions().Find(ctx, bson.D{{Key: "report_id", Value: reportID}, {Key: "label", Value: ""}}, opts)
	if err != nil {
		return fmt.Errorf("prune versions: %w", err)
	}
	var stale []struct {
		ID string `bson:"_id"`
	}
	if err := cur.All(ctx, &stale); err != nil {
		return fmt.Errorf("prune versions: %w", err)
	}
	if len(stale) == 0 {
		return nil
	}
	ids := make(bson.A, 0, len(stale))
	for _, d := range stale {
		ids = append(ids, d.ID)
	}
	_, err = s.versions().DeleteMany(ctx, bson.D{{Key: "_id", Value: bson.D{{Key: "$in", Value: ids}}}})
	if err != nil {
		return fmt.Errorf("prune versions: %w", err)
	}
	return nil
}

func reportToDoc(r *domain.Report) (reportDoc, error) {
	if err := content.Validate(r.Tree); err != nil {
		return reportDoc{}, err
	}
	tree, err := json.Marshal(r.Tree)
	if err != nil {
		return reportDoc{}, fmt.Errorf("encode report tree: %w", err)
	}
	return reportDoc{
		ID:          r.ID,
		Title:       r.Title,
		TreeJSON:    string(tree),
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
		LastSavedAt: r.LastSavedAt,
	}, nil
}

func reportFromDoc(d reportDoc) (*domain.Report, error) {
	r := &domain.Report{
		ID:          d.ID,
		Title:       d.Title,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
		LastSavedAt: d.LastSavedAt,
	}
	if err := json.Unmarshal([]byte(d.TreeJSON), &r.Tree); err != nil {
		return nil, fmt.Errorf("decode report tree: %w", err)
	}
	return r, nil
}

func versionToDoc(v *domain.Version, seq int64) (versionDoc, error) {
	tree, err := json.Marshal(v.Tree)
	if err != nil {
		return versionDoc{}, fmt.Errorf("encode version tree: %w", err)
	}
	return versionDoc{
		ID:        v.ID,
		ReportID:  v.ReportID,
		Label:     v.Label,
		TreeJSON:  string(tree),
		CreatedAt: v.CreatedAt.UTC(),
		Seq:       seq,
	}, nil
}

func versionFromDoc(d versionDoc) (*domain.Version, error) {
	v := &domain.Version{
		ID:        d.ID,
		ReportID:  d.ReportID,
		Label:     d.Label,
		CreatedAt: d.CreatedAt,
	}
	if err := json.Unmarshal([]byte(d.TreeJSON), &v.Tree); err != nil {
		return nil, fmt.Errorf("decode version tree: %w", err)
	}
	return v, nil
}
