package database

import (
	"context"
	"fmt"

	"github.com/carcompare/compare-webserver/internal/database/repository"
	"github.com/carcompare/compare-webserver/internal/database/usecase"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// A DatabaseClient establishes a connection to the MongoDB database and allows
// for interfacing through the different collections through it.
// Whoever uses this struct to establish a connection to the database is responsible
// for calling the Disconnect() method to gracefully disconnect from the database
type DatabaseClient struct {
	databaseClient    *mongo.Client
	carRepository     *repository.MongoCarRepository
	catalogRepository *repository.MongoCatalogRepository
	catalogUseCase    *usecase.CatalogUseCase
	carUseCase        *usecase.CarUseCase
}

const DefaultCarDatabase = "car_compare_db"

// NewDatabaseClient connects to uri, checks the connection and prepares the
// collections of databaseName. cache may be nil.
func NewDatabaseClient(ctx context.Context, uri string, databaseName string, cache usecase.CatalogCache) (*DatabaseClient, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("could not connect to MongoDB: %w", err)
	}

	err = client.Ping(ctx, nil)
	if err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("error pinging MongoDB: %w", err)
	}

	if databaseName == "" {
		databaseName = DefaultCarDatabase
	}
	carDatabase := client.Database(databaseName)

	databaseClient := &DatabaseClient{
		databaseClient: client,
	}

	carRepository, err := repository.NewMongoCarRepository(client, carDatabase)
	if err != nil {
		return nil, fmt.Errorf("could not create carRepository: %w", err)
	}
	if err := carRepository.EnsureIndexes(ctx); err != nil {
		return nil, err
	}
	databaseClient.carRepository = carRepository

	catalogRepository, err := repository.NewMongoCatalogRepository(client, carDatabase)
	if err != nil {
		return nil, fmt.Errorf("could not create catalogRepository: %w", err)
	}
	if err := catalogRepository.EnsureIndexes(ctx); err != nil {
		return nil, err
	}
	databaseClient.catalogRepository = catalogRepository

	databaseClient.catalogUseCase = usecase.NewCatalogUseCase(catalogRepository, cache)
	databaseClient.carUseCase = usecase.NewCarUseCase(carRepository, databaseClient.catalogUseCase)

	return databaseClient, nil
}

func (client *DatabaseClient) CarUseCase() *usecase.CarUseCase {
	return client.carUseCase
}

func (client *DatabaseClient) CatalogUseCase() *usecase.CatalogUseCase {
	return client.catalogUseCase
}

func (client *DatabaseClient) Disconnect(ctx context.Context) error {
	err := client.databaseClient.Disconnect(ctx)
	if err != nil {
		return fmt.Errorf("failed to disconnect MongoDB client: %w", err)
	}
	return nil
}
