package store

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/sneezeparty/soupy/config"
	"github.com/sneezeparty/soupy/log"
)

type dynamoDbStore struct {
	dynamoDb *dynamodb.Client
	table    *string
	log      log.Logger
}

func newDynamoDb(ctx context.Context, conf *config.DynamoDbConfig, log log.Logger) (External, error) {
	dynamoLog := log.WithPrefix("dynamodb")
	awsCtx, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		dynamoLog.Errorf("couldn't read aws config for DynamoDB: %s", err)
		return nil, err
	}
	var opts []func(*dynamodb.Options)
	if conf.Url != "" {
		opts = append(opts, func(options *dynamodb.Options) {
			options.BaseEndpoint = aws.String(conf.Url)
		})
	}
	log.Reportf("using DynamoDB for storage")
	return &dynamoDbStore{
		dynamoDb: dynamodb.NewFromConfig(awsCtx, opts...),
		table:    aws.String(conf.Table),
		log:      dynamoLog,
	}, nil
}

func (d *dynamoDbStore) Get(ctx context.Context, key string) ([]byte, error) {
	res, err := d.dynamoDb.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: d.table,
		Key: map[string]types.AttributeValue{
			keyName: &types.AttributeValueMemberS{Value: key},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	// the table's TTL sweep is lazy, an expired item may still be returned
	if expiry, ok := res.Item[expiryName]; ok {
		if v, ok := expiry.(*types.AttributeValueMemberN); ok {
			if ts, err := strconv.ParseInt(v.Value, 10, 64); err == nil && time.Now().Unix() > ts {
				return nil, ErrNotFound{Key: key}
			}
		}
	}
	if payload, ok := res.Item[payloadName]; ok {
		switch v := payload.(type) {
		case *types.AttributeValueMemberB:
			return v.Value, nil
		default:
			return nil, fmt.Errorf("invalid item under key '%s'", key)
		}
	}
	return nil, ErrNotFound{Key: key}
}

func (d *dynamoDbStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	item := map[string]types.AttributeValue{
		keyName:     &types.AttributeValueMemberS{Value: key},
		payloadName: &types.AttributeValueMemberB{Value: value},
	}
	if ttl > 0 {
		item[expiryName] = &types.AttributeValueMemberN{
			Value: strconv.FormatInt(time.Now().Add(ttl).Unix(), 10),
		}
	}
	_, err := d.dynamoDb.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: d.table,
		Item:      item,
	})
	return err
}

func (d *dynamoDbStore) Shutdown() {}
