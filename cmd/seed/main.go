// Seeds the demo retail schema used by cmd/demo's slow-query suite.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
)

var ddl = []string{
	`CREATE SCHEMA IF NOT EXISTS demo`,
	`SET search_path TO demo`,
	`CREATE TABLE IF NOT EXISTS customers (
		customer_id SERIAL PRIMARY KEY,
		username    TEXT NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS addresses (
		address_id  SERIAL PRIMARY KEY,
		customer_id INT REFERENCES customers(customer_id),
		city        TEXT NOT NULL,
		state       TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS products (
		product_id SERIAL PRIMARY KEY,
		name       TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS suppliers (
		supplier_id SERIAL PRIMARY KEY,
		name        TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS product_suppliers (
		product_id  INT,
		supplier_id INT REFERENCES suppliers(supplier_id),
		lead_days   INT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS inventory (
		product_id   INT REFERENCES products(product_id),
		in_stock_qty INT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS orders (
		order_id    SERIAL PRIMARY KEY,
		customer_id INT REFERENCES customers(customer_id),
		status      TEXT NOT NULL,
		order_ts    TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS order_items (
		order_id   INT REFERENCES orders(order_id),
		product_id INT REFERENCES products(product_id),
		qty        INT NOT NULL
	)`,
}

func main() {
	dbURL := flag.String("db", "", "customer database URL (postgres://...)")
	customers := flag.Int("customers", 5000, "number of customers to create")
	products := flag.Int("products", 2000, "number of products to create")
	orders := flag.Int("orders", 50000, "number of orders to create")
	flag.Parse()
	if *dbURL == "" {
		log.Fatal("-db is required")
	}

	ctx := context.Background()
	pool, err := pgxpool.Connect(ctx, *dbURL)
	if err != nil {
		log.Fatalf("connect: %v", err)
	}
	defer pool.Close()

	for _, stmt := range ddl {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			log.Fatalf("ddl: %v", err)
		}
	}
	log.Println("schema created")

	rng := rand.New(rand.NewSource(42))
	statuses := []string{"pending", "shipped", "delivered", "cancelled"}
	cities := []string{"San Francisco", "Sunnyvale", "Seattle", "Austin", "Denver"}

	for i := 0; i < *customers; i++ {
		var id int
		err := pool.QueryRow(ctx,
			`INSERT INTO demo.customers (username, created_at) VALUES ($1, now() - ($2 || ' days')::interval) RETURNING customer_id`,
			fmt.Sprintf("user_%d", i), rng.Intn(365)).Scan(&id)
		if err != nil {
			log.Fatalf("customers: %v", err)
		}
		if _, err := pool.Exec(ctx,
			`INSERT INTO demo.addresses (customer_id, city, state) VALUES ($1, $2, 'CA')`,
			id, cities[rng.Intn(len(cities))]); err != nil {
			log.Fatalf("addresses: %v", err)
		}
	}
	log.Printf("%d customers seeded", *customers)

	for i := 0; i < *products; i++ {
		name := fmt.Sprintf("product %d", i)
		if i%25 == 0 {
			name = fmt.Sprintf("smartphone model %d", i)
		}
		if _, err := pool.Exec(ctx, `INSERT INTO demo.products (name) VALUES ($1)`, name); err != nil {
			log.Fatalf("products: %v", err)
		}
		if _, err := pool.Exec(ctx,
			`INSERT INTO demo.inventory (product_id, in_stock_qty) VALUES ($1, $2)`,
			i+1, rng.Intn(500)); err != nil {
			log.Fatalf("inventory: %v", err)
		}
	}
	log.Printf("%d products seeded", *products)

	for i := 0; i < 50; i++ {
		if _, err := pool.Exec(ctx, `INSERT INTO demo.suppliers (name) VALUES ($1)`,
			fmt.Sprintf("supplier %d", i)); err != nil {
			log.Fatalf("suppliers: %v", err)
		}
	}
	for i := 0; i < *products; i++ {
		if _, err := pool.Exec(ctx,
			`INSERT INTO demo.product_suppliers (product_id, supplier_id, lead_days) VALUES ($1, $2, $3)`,
			i+1, rng.Intn(50)+1, rng.Intn(30)+1); err != nil {
			log.Fatalf("product_suppliers: %v", err)
		}
	}

	start := time.Now()
	for i := 0; i < *orders; i++ {
		var orderID int
		err := pool.QueryRow(ctx,
			`INSERT INTO demo.orders (customer_id, status, order_ts)
			 VALUES ($1, $2, now() - ($3 || ' hours')::interval) RETURNING order_id`,
			rng.Intn(*customers)+1, statuses[rng.Intn(len(statuses))], rng.Intn(24*90)).Scan(&orderID)
		if err != nil {
			log.Fatalf("orders: %v", err)
		}
		for j := 0; j < rng.Intn(4)+1; j++ {
			if _, err := pool.Exec(ctx,
				`INSERT INTO demo.order_items (order_id, product_id, qty) VALUES ($1, $2, $3)`,
				orderID, rng.Intn(*products)+1, rng.Intn(5)+1); err != nil {
				log.Fatalf("order_items: %v", err)
			}
		}
	}
	log.Printf("%d orders seeded in %s", *orders, time.Since(start).Round(time.Second))
	log.Println("done")
}
