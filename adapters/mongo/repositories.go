package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/satriahrh/lingualoop/domain"
	"github.com/satriahrh/lingualoop/domain/entities"
	"github.com/satriahrh/lingualoop/domain/repositories"
)

const (
	countersCollection     = "counters"
	lessonsCollection      = "lessons"
	phrasesCollection      = "phrases"
	translationsCollection = "translations"
	languagesCollection    = "languages"
	voicesCollection       = "voices"
	tokensCollection       = "access_tokens"
)

// NewStore creates the MongoDB repositories over db
func NewStore(db *mongo.Database) repositories.Store {
	seq := &sequence{collection: db.Collection(countersCollection)}
	return repositories.Store{
		Lessons: &LessonRepository{
			collection:   db.Collection(lessonsCollection),
			phrases:      db.Collection(phrasesCollection),
			translations: db.Collection(translationsCollection),
			seq:          seq,
		},
		Phrases: &PhraseRepository{
			collection: db.Collection(phrasesCollection),
			lessons:    db.Collection(lessonsCollection),
			seq:        seq,
		},
		Translations: &TranslationRepository{
			collection: db.Collection(translationsCollection),
			phrases:    db.Collection(phrasesCollection),
		},
		Languages: &LanguageRepository{collection: db.Collection(languagesCollection), seq: seq},
		Voices: &VoiceRepository{
			collection: db.Collection(voicesCollection),
			languages:  db.Collection(languagesCollection),
			seq:        seq,
		},
		Tokens: &AccessTokenRepository{collection: db.Collection(tokensCollection)},
	}
}

// sequence hands out ascending integer ids per collection.
type sequence struct {
	collection *mongo.Collection
}

func (s *sequence) next(ctx context.Context, name string, n int) (int64, error) {
	var doc struct {
		Value int64 `bson:"value"`
	}
	err := s.collection.FindOneAndUpdate(ctx,
		bson.M{"_id": name},
		bson.M{"$inc": bson.M{"value": n}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		return 0, fmt.Errorf("failed to allocate id for %s: %w", name, err)
	}
	// first id of the reserved block
	return doc.Value - int64(n) + 1, nil
}

func findOne[T any](ctx context.Context, c *mongo.Collection, filter bson.M, what string) (*T, error) {
	var out T
	if err := c.FindOne(ctx, filter).Decode(&out); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%s: %w", what, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get %s: %w", what, err)
	}
	return &out, nil
}

func findAll[T any](ctx context.Context, c *mongo.Collection, filter bson.M, sort bson.D) ([]*T, error) {
	cursor, err := c.Find(ctx, filter, options.Find().SetSort(sort))
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", c.Name(), err)
	}
	var out []*T
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", c.Name(), err)
	}
	return out, nil
}

var byID = bson.D{{Key: "_id", Value: 1}}

// LessonRepository implements repositories.LessonRepository
type LessonRepository struct {
	collection   *mongo.Collection
	phrases      *mongo.Collection
	translations *mongo.Collection
	seq          *sequence
}

func (r *LessonRepository) Create(ctx context.Context, lesson *entities.Lesson) error {
	if lesson == nil {
		return errors.New("lesson cannot be nil")
	}
	if err := lesson.Validate(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	if lesson.CreatedAt.IsZero() {
		lesson.CreatedAt = time.Now()
	}

	id, err := r.seq.next(ctx, lessonsCollection, 1)
	if err != nil {
		return err
	}
	lesson.ID = id
	if _, err := r.collection.InsertOne(ctx, lesson); err != nil {
		lesson.ID = 0
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %s", domain.ErrDuplicateName, lesson.Name)
		}
		return fmt.Errorf("failed to create lesson: %w", err)
	}
	return nil
}

func (r *LessonRepository) GetByID(ctx context.Context, id int64) (*entities.Lesson, error) {
	return findOne[entities.Lesson](ctx, r.collection, bson.M{"_id": id}, fmt.Sprintf("lesson %d", id))
}

func (r *LessonRepository) GetByName(ctx context.Context, name string) (*entities.Lesson, error) {
	return findOne[entities.Lesson](ctx, r.collection, bson.M{"name": name}, fmt.Sprintf("lesson %q", name))
}

func (r *LessonRepository) List(ctx context.Context) ([]*entities.Lesson, error) {
	return findAll[entities.Lesson](ctx, r.collection, bson.M{}, byID)
}

func (r *LessonRepository) IncrementPopularity(ctx context.Context, id int64) error {
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$inc": bson.M{"popularity": 1}})
	if err != nil {
		return fmt.Errorf("failed to update lesson: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("lesson %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

// Delete removes dependents first so a partial failure never leaves orphans
// reachable from a lesson.
func (r *LessonRepository) Delete(ctx context.Context, id int64) error {
	if _, err := r.translations.DeleteMany(ctx, bson.M{"lesson_id": id}); err != nil {
		return fmt.Errorf("failed to delete translations: %w", err)
	}
	if _, err := r.phrases.DeleteMany(ctx, bson.M{"lesson_id": id}); err != nil {
		return fmt.Errorf("failed to delete phrases: %w", err)
	}
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete lesson: %w", err)
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("lesson %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

// PhraseRepository implements repositories.PhraseRepository
type PhraseRepository struct {
	collection *mongo.Collection
	lessons    *mongo.Collection
	seq        *sequence
}

func (r *PhraseRepository) CreateBatch(ctx context.Context, lessonID int64, n int) ([]*entities.Phrase, error) {
	if _, err := findOne[entities.Lesson](ctx, r.lessons, bson.M{"_id": lessonID}, fmt.Sprintf("lesson %d", lessonID)); err != nil {
		return nil, err
	}
	if n == 0 {
		return []*entities.Phrase{}, nil
	}

	first, err := r.seq.next(ctx, phrasesCollection, n)
	if err != nil {
		return nil, err
	}
	out := make([]*entities.Phrase, n)
	docs := make([]interface{}, n)
	for i := range out {
		out[i] = &entities.Phrase{ID: first + int64(i), LessonID: lessonID}
		docs[i] = out[i]
	}
	if _, err := r.collection.InsertMany(ctx, docs); err != nil {
		return nil, fmt.Errorf("failed to create phrases: %w", err)
	}
	return out, nil
}

func (r *PhraseRepository) ListByLesson(ctx context.Context, lessonID int64) ([]*entities.Phrase, error) {
	return findAll[entities.Phrase](ctx, r.collection, bson.M{"lesson_id": lessonID}, byID)
}

// translationDoc carries the owning lesson so a lesson's translations can be
// listed and deleted without a join.
type translationDoc struct {
	PhraseID   int64  `bson:"phrase_id"`
	LanguageID int64  `bson:"language_id"`
	LessonID   int64  `bson:"lesson_id"`
	Text       string `bson:"text"`
	Hint       string `bson:"hint"`
}

// TranslationRepository implements repositories.TranslationRepository
type TranslationRepository struct {
	collection *mongo.Collection
	phrases    *mongo.Collection
}

func (r *TranslationRepository) CreateBatch(ctx context.Context, translations []*entities.Translation) error {
	if len(translations) == 0 {
		return nil
	}

	ids := make([]int64, 0, len(translations))
	for _, t := range translations {
		ids = append(ids, t.PhraseID)
	}
	phrases, err := findAll[entities.Phrase](ctx, r.phrases, bson.M{"_id": bson.M{"$in": ids}}, byID)
	if err != nil {
		return err
	}
	lessonOf := make(map[int64]int64, len(phrases))
	for _, p := range phrases {
		lessonOf[p.ID] = p.LessonID
	}

	docs := make([]interface{}, len(translations))
	for i, t := range translations {
		lessonID, ok := lessonOf[t.PhraseID]
		if !ok {
			return fmt.Errorf("phrase %d: %w", t.PhraseID, domain.ErrNotFound)
		}
		docs[i] = translationDoc{
			PhraseID:   t.PhraseID,
			LanguageID: t.LanguageID,
			LessonID:   lessonID,
			Text:       t.Text,
			Hint:       t.Hint,
		}
	}
	if _, err := r.collection.InsertMany(ctx, docs); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("translation already exists: %w", err)
		}
		return fmt.Errorf("failed to create translations: %w", err)
	}
	return nil
}

func (r *TranslationRepository) ListByLessonLanguage(ctx context.Context, lessonID, languageID int64) ([]*entities.Translation, error) {
	docs, err := findAll[translationDoc](ctx, r.collection,
		bson.M{"lesson_id": lessonID, "language_id": languageID},
		bson.D{{Key: "phrase_id", Value: 1}})
	if err != nil {
		return nil, err
	}
	out := make([]*entities.Translation, len(docs))
	for i, d := range docs {
		out[i] = &entities.Translation{PhraseID: d.PhraseID, LanguageID: d.LanguageID, Text: d.Text, Hint: d.Hint}
	}
	return out, nil
}

// LanguageRepository implements repositories.LanguageRepository
type LanguageRepository struct {
	collection *mongo.Collection
	seq        *sequence
}

func (r *LanguageRepository) Create(ctx context.Context, language *entities.Language) error {
	if err := language.Validate(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	id, err := r.seq.next(ctx, languagesCollection, 1)
	if err != nil {
		return err
	}
	language.ID = id
	if _, err := r.collection.InsertOne(ctx, language); err != nil {
		language.ID = 0
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: language %s", domain.ErrDuplicateName, language.Tag)
		}
		return fmt.Errorf("failed to create language: %w", err)
	}
	return nil
}

func (r *LanguageRepository) GetByID(ctx context.Context, id int64) (*entities.Language, error) {
	return findOne[entities.Language](ctx, r.collection, bson.M{"_id": id}, fmt.Sprintf("language %d", id))
}

func (r *LanguageRepository) GetByTag(ctx context.Context, tag string) (*entities.Language, error) {
	return findOne[entities.Language](ctx, r.collection, bson.M{"tag": tag}, fmt.Sprintf("language %q", tag))
}

func (r *LanguageRepository) List(ctx context.Context) ([]*entities.Language, error) {
	return findAll[entities.Language](ctx, r.collection, bson.M{}, byID)
}

// VoiceRepository implements repositories.VoiceRepository
type VoiceRepository struct {
	collection *mongo.Collection
	languages  *mongo.Collection
	seq        *sequence
}

func (r *VoiceRepository) Create(ctx context.Context, voice *entities.Voice) error {
	if err := voice.Validate(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	if _, err := findOne[entities.Language](ctx, r.languages, bson.M{"_id": voice.LanguageID}, fmt.Sprintf("language %d", voice.LanguageID)); err != nil {
		return err
	}
	id, err := r.seq.next(ctx, voicesCollection, 1)
	if err != nil {
		return err
	}
	voice.ID = id
	if _, err := r.collection.InsertOne(ctx, voice); err != nil {
		voice.ID = 0
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: voice %s", domain.ErrDuplicateName, voice.ShortName)
		}
		return fmt.Errorf("failed to create voice: %w", err)
	}
	return nil
}

func (r *VoiceRepository) GetByID(ctx context.Context, id int64) (*entities.Voice, error) {
	return findOne[entities.Voice](ctx, r.collection, bson.M{"_id": id}, fmt.Sprintf("voice %d", id))
}

func (r *VoiceRepository) GetByShortName(ctx context.Context, shortName string) (*entities.Voice, error) {
	return findOne[entities.Voice](ctx, r.collection, bson.M{"short_name": shortName}, fmt.Sprintf("voice %q", shortName))
}

func (r *VoiceRepository) List(ctx context.Context) ([]*entities.Voice, error) {
	return findAll[entities.Voice](ctx, r.collection, bson.M{}, byID)
}

func (r *VoiceRepository) ListByLanguage(ctx context.Context, languageID int64) ([]*entities.Voice, error) {
	return findAll[entities.Voice](ctx, r.collection, bson.M{"language_id": languageID}, byID)
}

type tokenDoc struct {
	Hash      string    `bson:"_id"`
	Used      bool      `bson:"used"`
	CreatedAt time.Time `bson:"created_at"`
}

// AccessTokenRepository implements repositories.AccessTokenRepository
type AccessTokenRepository struct {
	collection *mongo.Collection
}

func (r *AccessTokenRepository) Create(ctx context.Context, hash string) error {
	if _, err := r.collection.InsertOne(ctx, tokenDoc{Hash: hash, CreatedAt: time.Now()}); err != nil {
		return fmt.Errorf("failed to create token: %w", err)
	}
	return nil
}

func (r *AccessTokenRepository) Status(ctx context.Context, hash string) (entities.TokenStatus, error) {
	doc, err := findOne[tokenDoc](ctx, r.collection, bson.M{"_id": hash}, "token")
	if errors.Is(err, domain.ErrNotFound) {
		return entities.TokenStatus{}, nil
	}
	if err != nil {
		return entities.TokenStatus{}, err
	}
	return entities.TokenStatus{Valid: true, AlreadyUsed: doc.Used}, nil
}

func (r *AccessTokenRepository) MarkUsed(ctx context.Context, hash string) error {
	result, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": hash, "used": bson.M{"$ne": true}},
		bson.M{"$set": bson.M{"used": true}})
	if err != nil {
		return fmt.Errorf("failed to update token: %w", err)
	}
	if result.MatchedCount == 1 {
		return nil
	}
	status, err := r.Status(ctx, hash)
	if err != nil {
		return err
	}
	if !status.Valid {
		return fmt.Errorf("token: %w", domain.ErrNotFound)
	}
	return fmt.Errorf("token: %w", domain.ErrAlreadyUsed)
}

var (
	_ repositories.LessonRepository      = (*LessonRepository)(nil)
	_ repositories.PhraseRepository      = (*PhraseRepository)(nil)
	_ repositories.TranslationRepository = (*TranslationRepository)(nil)
	_ repositories.LanguageRepository    = (*LanguageRepository)(nil)
	_ repositories.VoiceRepository       = (*VoiceRepository)(nil)
	_ repositories.AccessTokenRepository = (*AccessTokenRepository)(nil)
)
