// Benchmark tool for checking trust scores against labeled repayment data.
//
// Usage:
//
//	go run ./cmd/benchmark -csv /path/to/credit_data.csv -url http://localhost:8080
//
// This tool:
//  1. Reads applicant profiles with a "default" label
//  2. Sends them to POST /score/batch
//  3. Treats a final trust score below -cutoff as a predicted default
//  4. Prints the confusion matrix, precision, recall and score spread
package main

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/opensource-finance/credivist/internal/features"
)

// LabeledRecord is one CSV row.
type LabeledRecord struct {
	Record    features.Record
	Profile   string
	Defaulted bool
}

type batchRequest struct {
	Records []*features.Record `json:"records"`
}

type batchResponse struct {
	Results []struct {
		ApplicantID string `json:"user_id"`
		Error       string `json:"error"`
		Result      *struct {
			Score struct {
				FinalTrustScore float64 `json:"final_trust_score"`
				RiskProbability float64 `json:"risk_probability"`
			} `json:"score"`
		} `json:"result"`
	} `json:"results"`
}

// Metrics tracks benchmark results
type Metrics struct {
	TruePositives  int64 // Default predicted as default
	FalsePositives int64 // Repaid predicted as default
	TrueNegatives  int64 // Repaid predicted as repaid
	FalseNegatives int64 // Default predicted as repaid

	TotalProcessed int64
	TotalDefault   int64
	TotalRepaid    int64
	TotalErrors    int64

	ProcessingTimeMs int64

	mu            sync.Mutex
	defaultScores []float64
	repaidScores  []float64
}

func main() {
	csvPath := flag.String("csv", "", "Path to labeled credit CSV")
	baseURL := flag.String("url", "http://localhost:8080", "CrediVist base URL")
	tenantID := flag.String("tenant", "benchmark-test", "Tenant ID for requests")
	limit := flag.Int("limit", 1000, "Maximum records to process (0 = all)")
	batchSize := flag.Int("batch", 100, "Records per /score/batch call (max 500)")
	workers := flag.Int("workers", 4, "Number of concurrent batch senders")
	cutoff := flag.Float64("cutoff", 550, "Scores below this count as predicted defaults")
	verbose := flag.Bool("verbose", false, "Print each record result")
	flag.Parse()

	if *csvPath == "" {
		fmt.Println("Usage: benchmark -csv /path/to/credit_data.csv [-url http://localhost:8080]")
		fmt.Println("\nFlags:")
		flag.PrintDefaults()
		os.Exit(1)
	}
	if *batchSize < 1 || *batchSize > 500 {
		fmt.Println("ERROR: -batch must be within 1-500")
		os.Exit(1)
	}

	fmt.Println("CREDIVIST BENCHMARK - labeled repayment data")
	fmt.Printf("\nCSV File:   %s\n", *csvPath)
	fmt.Printf("URL:        %s\n", *baseURL)
	fmt.Printf("Tenant ID:  %s\n", *tenantID)
	fmt.Printf("Workers:    %d\n", *workers)
	fmt.Printf("Batch:      %d\n", *batchSize)
	fmt.Printf("Cutoff:     %.0f\n", *cutoff)
	fmt.Println()

	if err := checkHealth(*baseURL); err != nil {
		fmt.Printf("ERROR: CrediVist not reachable at %s: %v\n", *baseURL, err)
		fmt.Println("\nMake sure the server is running:")
		fmt.Println("  go run ./cmd/credivist")
		os.Exit(1)
	}
	fmt.Println("✓ CrediVist is healthy")

	records, err := readCreditCSV(*csvPath, *limit)
	if err != nil {
		fmt.Printf("ERROR: Failed to read CSV: %v\n", err)
		os.Exit(1)
	}
	if len(records) == 0 {
		fmt.Println("ERROR: no records in CSV")
		os.Exit(1)
	}
	fmt.Printf("✓ Loaded %d records\n", len(records))

	defaults := 0
	for _, r := range records {
		if r.Defaulted {
			defaults++
		}
	}
	fmt.Printf("  - Defaulted: %d (%.2f%%)\n", defaults, 100*float64(defaults)/float64(len(records)))
	fmt.Printf("  - Repaid:    %d (%.2f%%)\n", len(records)-defaults, 100*float64(len(records)-defaults)/float64(len(records)))

	fmt.Printf("\nRunning benchmark with %d workers...\n", *workers)
	startTime := time.Now()
	metrics := runBenchmark(records, *baseURL, *tenantID, *batchSize, *workers, *cutoff, *verbose)
	duration := time.Since(startTime)

	printResults(metrics, duration)
}

func checkHealth(baseURL string) error {
	resp, err := http.Get(baseURL + "/health")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}
	return nil
}

func readCreditCSV(path string, limit int) ([]LabeledRecord, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	colIndex := make(map[string]int)
	for i, col := range header {
		colIndex[strings.ToLower(strings.TrimSpace(col))] = i
	}
	if _, ok := colIndex["monthly_incomes"]; !ok {
		return nil, fmt.Errorf("missing monthly_incomes column")
	}

	var out []LabeledRecord
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue // Skip malformed rows
		}

		get := func(col string) string {
			i, ok := colIndex[col]
			if !ok || i >= len(row) {
				return ""
			}
			return row[i]
		}
		num := func(col string) float64 {
			v, _ := strconv.ParseFloat(get(col), 64)
			return v
		}
		boolCol := func(col string) bool {
			v := strings.ToLower(get(col))
			return v == "1" || v == "true"
		}

		var incomes features.IncomeHistory
		if err := json.Unmarshal([]byte(strconv.Quote(get("monthly_incomes"))), &incomes); err != nil {
			continue
		}

		out = append(out, LabeledRecord{
			Profile:   get("profile"),
			Defaulted: boolCol("default"),
			Record: features.Record{
				ApplicantID:               get("user_id"),
				MonthlyIncomes:            incomes,
				MeanIncome:                num("mean_income"),
				FixedExpenses:             num("fixed_expenses"),
				NumIncomeSources:          int(num("num_income_sources")),
				OnTimePayments:            int(num("on_time_payments")),
				TotalBills:                int(num("total_bills")),
				AvgDelayDays:              num("avg_delay_days"),
				RecurringPaymentsDetected: int(num("recurring_payments_detected")),
				EMIConsistencyScore:       num("emi_consistency_score"),
				TxnRegularityScore:        num("txn_regularity_score"),
				TotalTransactions:         int(num("total_transactions")),
				EssentialRatio:            num("essential_ratio"),
				HasRecurringSavings:       boolCol("has_recurring_savings"),
				MinBalanceMaintained:      boolCol("min_balance_maintained"),
				AvgMonthlySavings:         num("avg_monthly_savings"),
				TenureMonths:              int(num("tenure_months")),
				PlatformRating:            num("platform_rating"),
				ActiveDaysPerMonth:        int(num("active_days_per_month")),
				RechargeRegularity:        num("recharge_regularity"),
			},
		})

		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func runBenchmark(records []LabeledRecord, baseURL, tenantID string, batchSize, numWorkers int, cutoff float64, verbose bool) *Metrics {
	metrics := &Metrics{}

	work := make(chan []LabeledRecord, numWorkers)
	var wg sync.WaitGroup

	for range numWorkers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			client := &http.Client{Timeout: 60 * time.Second}

			for chunk := range work {
				start := time.Now()
				resp, err := scoreBatch(client, baseURL, tenantID, chunk)
				atomic.AddInt64(&metrics.ProcessingTimeMs, time.Since(start).Milliseconds())

				if err != nil {
					atomic.AddInt64(&metrics.TotalErrors, int64(len(chunk)))
					atomic.AddInt64(&metrics.TotalProcessed, int64(len(chunk)))
					if verbose {
						fmt.Printf("ERROR: batch of %d -> %v\n", len(chunk), err)
					}
					continue
				}

				for i, item := range resp.Results {
					if i >= len(chunk) {
						break
					}
					atomic.AddInt64(&metrics.TotalProcessed, 1)
					if item.Error != "" || item.Result == nil {
						atomic.AddInt64(&metrics.TotalErrors, 1)
						continue
					}
					metrics.record(chunk[i], item.Result.Score.FinalTrustScore, cutoff)

					if verbose {
						fmt.Printf("%-8s | %-8s | default: %-5v | score: %5.0f | risk: %.2f\n",
							chunk[i].Record.ApplicantID,
							chunk[i].Profile,
							chunk[i].Defaulted,
							item.Result.Score.FinalTrustScore,
							item.Result.Score.RiskProbability,
						)
					}
				}
			}
		}()
	}

	for start := 0; start < len(records); start += batchSize {
		work <- records[start:min(start+batchSize, len(records))]
	}
	close(work)

	wg.Wait()
	return metrics
}

func (m *Metrics) record(r LabeledRecord, score, cutoff float64) {
	predicted := score < cutoff
	actual := r.Defaulted

	switch {
	case predicted && actual:
		atomic.AddInt64(&m.TruePositives, 1)
	case predicted && !actual:
		atomic.AddInt64(&m.FalsePositives, 1)
	case !predicted && !actual:
		atomic.AddInt64(&m.TrueNegatives, 1)
	default:
		atomic.AddInt64(&m.FalseNegatives, 1)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if actual {
		m.TotalDefault++
		m.defaultScores = append(m.defaultScores, score)
	} else {
		m.TotalRepaid++
		m.repaidScores = append(m.repaidScores, score)
	}
}

func scoreBatch(client *http.Client, baseURL, tenantID string, chunk []LabeledRecord) (*batchResponse, error) {
	req := batchRequest{Records: make([]*features.Record, len(chunk))}
	for i := range chunk {
		req.Records[i] = &chunk[i].Record
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequest(http.MethodPost, baseURL+"/score/batch", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Tenant-ID", tenantID)

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	var result batchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}
	return &result, nil
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

func printResults(m *Metrics, duration time.Duration) {
	fmt.Println("\nBENCHMARK RESULTS")

	fmt.Printf("\n📊 DATASET STATISTICS\n")
	fmt.Printf("   Total Processed:  %d\n", m.TotalProcessed)
	fmt.Printf("   Defaulted:        %d\n", m.TotalDefault)
	fmt.Printf("   Repaid:           %d\n", m.TotalRepaid)
	fmt.Printf("   Errors:           %d\n", m.TotalErrors)

	fmt.Printf("\n📈 CONFUSION MATRIX\n")
	fmt.Println("                      Predicted")
	fmt.Println("                  DEFAULT     REPAID")
	fmt.Printf("   Actual  D   %8d   %8d   (TP, FN)\n", m.TruePositives, m.FalseNegatives)
	fmt.Printf("           R   %8d   %8d   (FP, TN)\n", m.FalsePositives, m.TrueNegatives)

	precision := float64(0)
	if m.TruePositives+m.FalsePositives > 0 {
		precision = float64(m.TruePositives) / float64(m.TruePositives+m.FalsePositives)
	}
	recall := float64(0)
	if m.TruePositives+m.FalseNegatives > 0 {
		recall = float64(m.TruePositives) / float64(m.TruePositives+m.FalseNegatives)
	}
	f1 := float64(0)
	if precision+recall > 0 {
		f1 = 2 * (precision * recall) / (precision + recall)
	}
	accuracy := float64(0)
	total := m.TruePositives + m.TrueNegatives + m.FalsePositives + m.FalseNegatives
	if total > 0 {
		accuracy = float64(m.TruePositives+m.TrueNegatives) / float64(total)
	}

	fmt.Printf("\n🎯 DETECTION METRICS\n")
	fmt.Printf("   Precision:  %.4f  (of predicted defaults, how many defaulted)\n", precision)
	fmt.Printf("   Recall:     %.4f  (of defaults, how many scored below the cutoff)\n", recall)
	fmt.Printf("   F1-Score:   %.4f\n", f1)
	fmt.Printf("   Accuracy:   %.4f\n", accuracy)

	fmt.Printf("\n🔍 SCORE SPREAD\n")
	fmt.Printf("   Median score, defaulted:  %.0f\n", median(m.defaultScores))
	fmt.Printf("   Median score, repaid:     %.0f\n", median(m.repaidScores))

	fmt.Printf("\n⏱️  PERFORMANCE\n")
	fmt.Printf("   Total Duration:   %v\n", duration.Round(time.Millisecond))
	if m.TotalProcessed > 0 {
		fmt.Printf("   Throughput:       %.2f profiles/sec\n", float64(m.TotalProcessed)/duration.Seconds())
	}
	fmt.Println()
}
