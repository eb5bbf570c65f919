package repository

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// sessionDocumentID 凭证文档的固定ID
const sessionDocumentID = "session"

// mongoKVStore 把所有键存到同一个文档中，单文档更新天然原子
type mongoKVStore struct {
	collection *mongo.Collection
	closer     func(context.Context) error
}

// NewMongoKVStore 创建 MongoDB 键值存储
func NewMongoKVStore(collection *mongo.Collection, closer func(context.Context) error) KVStore {
	return &mongoKVStore{collection: collection, closer: closer}
}

// Get 读取指定键
func (s *mongoKVStore) Get(ctx context.Context, keys ...string) (map[string]string, error) {
	result := make(map[string]string, len(keys))

	var doc bson.M
	err := s.collection.FindOne(ctx, bson.M{"_id": sessionDocumentID}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return result, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session document: %w", err)
	}

	for _, key := range keys {
		if value, ok := doc[key].(string); ok {
			result[key] = value
		}
	}
	return result, nil
}

// Update 一次 $set/$unset 完成写入与删除
func (s *mongoKVStore) Update(ctx context.Context, set map[string]string, remove []string) error {
	update := bson.M{}
	if len(set) > 0 {
		fields := bson.M{}
		for key, value := range set {
			fields[key] = value
		}
		update["$set"] = fields
	}
	if len(remove) > 0 {
		fields := bson.M{}
		for _, key := range remove {
			if _, overwritten := set[key]; !overwritten {
				fields[key] = ""
			}
		}
		if len(fields) > 0 {
			update["$unset"] = fields
		}
	}
	if len(update) == 0 {
		return nil
	}

	_, err := s.collection.UpdateOne(ctx,
		bson.M{"_id": sessionDocumentID},
		update,
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to update session document: %w", err)
	}
	return nil
}

// SetIfAbsent 键不存在时写入
func (s *mongoKVStore) SetIfAbsent(ctx context.Context, key, value string) (string, error) {
	// 文档已存在但缺少该字段
	if _, err := s.collection.UpdateOne(ctx,
		bson.M{"_id": sessionDocumentID, key: bson.M{"$exists": false}},
		bson.M{"$set": bson.M{key: value}},
	); err != nil {
		return "", fmt.Errorf("failed to set %s: %w", key, err)
	}
	// 文档不存在
	if _, err := s.collection.UpdateOne(ctx,
		bson.M{"_id": sessionDocumentID},
		bson.M{"$setOnInsert": bson.M{key: value}},
		options.Update().SetUpsert(true),
	); err != nil {
		return "", fmt.Errorf("failed to insert %s: %w", key, err)
	}

	stored, err := s.Get(ctx, key)
	if err != nil {
		return "", err
	}
	return stored[key], nil
}

// Close 断开连接
func (s *mongoKVStore) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer(context.Background())
}
