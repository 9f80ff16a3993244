package queryanalysis

import (
	"math/rand"

	"github.com/divyansh-cyber/AceE6data/pkg/models"
)

var demoQueries = []models.QueryRecord{
	{
		ID:            1001,
		Query:         "SELECT * FROM users WHERE email = 'user@example.com'",
		ExecutionTime: 0.5, RowsExamined: 1_000_000, RowsSent: 1,
		Explanation: "No index on the email column, so every lookup scans 1M rows.",
	},
	{
		ID:            1002,
		Query:         "SELECT u.*, p.* FROM users u LEFT JOIN posts p ON u.id = p.user_id WHERE u.created_at > '2024-01-01'",
		ExecutionTime: 3.2, RowsExamined: 5_000_000, RowsSent: 50_000,
		Explanation: "No index on created_at, and the LEFT JOIN has no index on the foreign key p.user_id.",
	},
	{
		ID:            1003,
		Query:         "SELECT * FROM orders WHERE status IN ('pending', 'processing', 'shipped') ORDER BY created_at DESC",
		ExecutionTime: 1.8, RowsExamined: 2_000_000, RowsSent: 10_000,
		Explanation: "No composite index on (status, created_at) for filtering and sorting.",
	},
	{
		ID:            1004,
		Query:         "SELECT * FROM products WHERE name LIKE '%laptop%' AND category_id = 5",
		ExecutionTime: 4.5, RowsExamined: 3_000_000, RowsSent: 500,
		Explanation: "The leading wildcard in '%laptop%' prevents index use; no composite index on (category_id, name).",
	},
	{
		ID:            1005,
		Query:         "SELECT COUNT(*) FROM orders o WHERE EXISTS (SELECT 1 FROM order_items oi WHERE oi.order_id = o.id AND oi.quantity > 10)",
		ExecutionTime: 2.1, RowsExamined: 1_000_000, RowsSent: 1,
		Explanation: "The correlated EXISTS subquery runs per order; a JOIN would be cheaper.",
	},
	{
		ID:            1006,
		Query:         "SELECT * FROM users WHERE age BETWEEN 18 AND 65 AND city = 'New York' ORDER BY last_login DESC LIMIT 100",
		ExecutionTime: 0.8, RowsExamined: 500_000, RowsSent: 100,
		Explanation: "No composite index on (city, age, last_login) for filtering, sorting and limiting.",
	},
	{
		ID:            1007,
		Query:         "SELECT u.name, COUNT(p.id) as post_count FROM users u LEFT JOIN posts p ON u.id = p.user_id GROUP BY u.id HAVING post_count > 10",
		ExecutionTime: 2.8, RowsExamined: 4_000_000, RowsSent: 5_000,
		Explanation: "No index on the foreign key p.user_id and the GROUP BY is unindexed; a covering index on (user_id, id) would help.",
	},
	{
		ID:            1008,
		Query:         "SELECT * FROM logs WHERE log_level = 'ERROR' AND created_at >= DATE_SUB(NOW(), INTERVAL 1 DAY) ORDER BY created_at DESC",
		ExecutionTime: 1.2, RowsExamined: 800_000, RowsSent: 2_000,
		Explanation: "No composite index on (log_level, created_at) for filtering and sorting.",
	},
	{
		ID:            1009,
		Query:         "UPDATE products SET price = price * 1.1 WHERE category_id = 3 AND in_stock = 1",
		ExecutionTime: 3.5, RowsExamined: 1_500_000, RowsSent: 0,
		Explanation: "No composite index on (category_id, in_stock) for the UPDATE filter.",
	},
	{
		ID:            1010,
		Query:         "SELECT DISTINCT user_id FROM orders WHERE total_amount > 1000 AND created_at > '2024-01-01'",
		ExecutionTime: 2.3, RowsExamined: 2_000_000, RowsSent: 15_000,
		Explanation: "No composite index on (total_amount, created_at, user_id) for filtering and DISTINCT.",
	},
}

// DemoQueries returns the built-in sample workload.
func DemoQueries() []models.QueryRecord {
	return append([]models.QueryRecord(nil), demoQueries...)
}

// SampleDemoQueries returns count distinct demo queries in random order.
// A nil r uses an unseeded source.
func SampleDemoQueries(count int, r *rand.Rand) []models.QueryRecord {
	if r == nil {
		r = rand.New(rand.NewSource(rand.Int63()))
	}
	all := DemoQueries()
	r.Shuffle(len(all), func(i, j int) { all[i], all[j] = all[j], all[i] })
	if count < 0 {
		count = 0
	}
	if count < len(all) {
		all = all[:count]
	}
	return all
}
