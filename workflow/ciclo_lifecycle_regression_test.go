package workflow_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"bitbucket.org/verdealba/cultiva_backend/config"
	"bitbucket.org/verdealba/cultiva_backend/models"
	"bitbucket.org/verdealba/cultiva_backend/utils"
	"bitbucket.org/verdealba/cultiva_backend/workflow"
	"github.com/shopspring/decimal"
)

// setupIntegration boots mysql+redis containers once per test and returns a
// context carrying a fresh user's identity.
func setupIntegration(t *testing.T) context.Context {
	t.Helper()
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}

	ctx := context.Background()

	redisName, redisPort := startRedisContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(redisName) })

	mysqlName, mysqlPort := startMySQLContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(mysqlName) })

	t.Setenv("REDIS_ADDRESS", fmt.Sprintf("127.0.0.1:%s", redisPort))
	t.Setenv("DB_USER", "root")
	t.Setenv("DB_PASSWORD", "testpw")
	t.Setenv("DB_HOST", "127.0.0.1")
	t.Setenv("DB_PORT", mysqlPort)
	t.Setenv("DB_NAME", "cultiva_test")

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	models.MigrateTable()

	user, err := models.CreateUser(ctx, &models.NewUser{
		Username: fmt.Sprintf("grower-%d", time.Now().UnixNano()),
		Name:     "Test Grower",
		Password: "secret-pw",
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	ctx = utils.SetUserIdInContext(ctx, user.ID)
	ctx = utils.SetUsernameInContext(ctx, user.Username)
	return ctx
}

func mkSala(t *testing.T, ctx context.Context, name string) *models.Sala {
	t.Helper()
	sala, err := models.CreateSala(ctx, &models.NewSala{Name: name})
	if err != nil {
		t.Fatalf("CreateSala(%q): %v", name, err)
	}
	return sala
}

func mkStrain(t *testing.T, ctx context.Context, name string, clones, seeds int) *models.GeneticStrain {
	t.Helper()
	strain, err := models.CreateStrain(ctx, &models.NewGeneticStrain{
		Name:       name,
		CloneStock: clones,
		SeedStock:  seeds,
	})
	if err != nil {
		t.Fatalf("CreateStrain(%q): %v", name, err)
	}
	return strain
}

func TestCreateCicloDebitsStockAtomically(t *testing.T) {
	ctx := setupIntegration(t)

	sala := mkSala(t, ctx, "Sala A")
	strain := mkStrain(t, ctx, "Gorila Glue", 10, 5)

	ciclo, err := workflow.CreateCiclo(ctx, &models.NewCiclo{
		SalaId: sala.ID,
		Name:   "Run 1",
		Genetics: []models.NewGeneticAllocation{
			{StrainId: strain.ID, Quantity: 6, Source: models.StockSourceClone},
			{StrainId: strain.ID, Quantity: 2, Source: models.StockSourceSeed},
		},
	})
	if err != nil {
		t.Fatalf("CreateCiclo: %v", err)
	}
	if ciclo.State != models.CicloStateActive {
		t.Fatalf("new ciclo state %q", ciclo.State)
	}
	if len(ciclo.VegetativeWeeks) == 0 {
		t.Fatal("vegetative ciclo must get a derived week schedule")
	}

	after, err := models.GetStrain(ctx, strain.ID)
	if err != nil {
		t.Fatalf("GetStrain: %v", err)
	}
	if after.CloneStock != 4 || after.SeedStock != 3 {
		t.Fatalf("stock after create: clones=%d seeds=%d, want 4/3", after.CloneStock, after.SeedStock)
	}
}

func TestCreateCicloInsufficientStockLeavesNoTrace(t *testing.T) {
	ctx := setupIntegration(t)

	sala := mkSala(t, ctx, "Sala A")
	rich := mkStrain(t, ctx, "Rich", 10, 0)
	poor := mkStrain(t, ctx, "Poor", 1, 0)

	_, err := workflow.CreateCiclo(ctx, &models.NewCiclo{
		SalaId: sala.ID,
		Name:   "Doomed",
		Genetics: []models.NewGeneticAllocation{
			{StrainId: rich.ID, Quantity: 5, Source: models.StockSourceClone},
			{StrainId: poor.ID, Quantity: 3, Source: models.StockSourceClone},
		},
	})
	if err == nil {
		t.Fatal("expected insufficient stock error")
	}

	// the rich strain's debit must have rolled back with everything else
	after, err := models.GetStrain(ctx, rich.ID)
	if err != nil {
		t.Fatalf("GetStrain: %v", err)
	}
	if after.CloneStock != 10 {
		t.Fatalf("rolled-back debit left clone stock at %d", after.CloneStock)
	}
	ciclos, err := models.GetCiclos(ctx, nil)
	if err != nil {
		t.Fatalf("GetCiclos: %v", err)
	}
	if len(ciclos) != 0 {
		t.Fatalf("failed create left %d ciclos behind", len(ciclos))
	}
}

func TestUpdateCicloGeneticsNetsStockMovement(t *testing.T) {
	ctx := setupIntegration(t)

	sala := mkSala(t, ctx, "Sala A")
	strain := mkStrain(t, ctx, "Kush", 10, 0)

	ciclo, err := workflow.CreateCiclo(ctx, &models.NewCiclo{
		SalaId: sala.ID,
		Name:   "Net Run",
		Genetics: []models.NewGeneticAllocation{
			{StrainId: strain.ID, Quantity: 2, Source: models.StockSourceClone},
		},
	})
	if err != nil {
		t.Fatalf("CreateCiclo: %v", err)
	}

	// 2 -> 5 of the same strain nets to a single extra debit of 3
	updated, err := workflow.UpdateCicloGenetics(ctx, ciclo.ID, []models.NewGeneticAllocation{
		{StrainId: strain.ID, Quantity: 5, Source: models.StockSourceClone},
	})
	if err != nil {
		t.Fatalf("UpdateCicloGenetics: %v", err)
	}
	if updated.GeneticsVersion != ciclo.GeneticsVersion+1 {
		t.Fatalf("genetics version %d, want %d", updated.GeneticsVersion, ciclo.GeneticsVersion+1)
	}

	after, err := models.GetStrain(ctx, strain.ID)
	if err != nil {
		t.Fatalf("GetStrain: %v", err)
	}
	if after.CloneStock != 5 {
		t.Fatalf("clone stock after netting %d, want 5", after.CloneStock)
	}
}

func TestUpdateCicloGeneticsConcurrentEditsKeepLedgerConsistent(t *testing.T) {
	ctx := setupIntegration(t)

	sala := mkSala(t, ctx, "Sala A")
	strain := mkStrain(t, ctx, "Haze", 20, 0)

	ciclo, err := workflow.CreateCiclo(ctx, &models.NewCiclo{
		SalaId: sala.ID,
		Name:   "Race Run",
		Genetics: []models.NewGeneticAllocation{
			{StrainId: strain.ID, Quantity: 2, Source: models.StockSourceClone},
		},
	})
	if err != nil {
		t.Fatalf("CreateCiclo: %v", err)
	}

	// two tabs edit the genetics at once; the version token must reject
	// whichever write raced against a stale snapshot
	targets := []int{5, 3}
	errs := make([]error, len(targets))
	var start, done sync.WaitGroup
	start.Add(1)
	for i, qty := range targets {
		done.Add(1)
		go func(i, qty int) {
			defer done.Done()
			start.Wait()
			_, errs[i] = workflow.UpdateCicloGenetics(ctx, ciclo.ID, []models.NewGeneticAllocation{
				{StrainId: strain.ID, Quantity: qty, Source: models.StockSourceClone},
			})
		}(i, qty)
	}
	start.Done()
	done.Wait()

	succeeded := 0
	for i, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		if !errors.Is(err, utils.ErrorConcurrentUpdate) {
			t.Fatalf("edit %d failed with %v, want concurrent-update rejection", i, err)
		}
	}
	if succeeded == 0 {
		t.Fatal("both edits were rejected")
	}

	after, err := models.GetCiclo(ctx, ciclo.ID)
	if err != nil {
		t.Fatalf("GetCiclo: %v", err)
	}
	allocated := 0
	for _, g := range after.Genetics {
		allocated += g.Quantity
	}
	catalog, err := models.GetStrain(ctx, strain.ID)
	if err != nil {
		t.Fatalf("GetStrain: %v", err)
	}
	// every clone is either on the shelf or allocated to the cycle
	if catalog.CloneStock+allocated != 20 {
		t.Fatalf("ledger drifted: stock=%d allocated=%d, want sum 20", catalog.CloneStock, allocated)
	}
	if after.GeneticsVersion != ciclo.GeneticsVersion+succeeded {
		t.Fatalf("genetics version %d after %d successful edits (started at %d)",
			after.GeneticsVersion, succeeded, ciclo.GeneticsVersion)
	}
}

func TestFinalizeCreatesExactlyOneJar(t *testing.T) {
	ctx := setupIntegration(t)

	sala := mkSala(t, ctx, "Sala A")
	strain := mkStrain(t, ctx, "Amnesia", 5, 0)

	ciclo, err := workflow.CreateCiclo(ctx, &models.NewCiclo{
		SalaId: sala.ID,
		Name:   "Harvest Run",
		Phase:  models.CicloPhaseFlowering,
		Genetics: []models.NewGeneticAllocation{
			{StrainId: strain.ID, Quantity: 3, Source: models.StockSourceClone},
		},
	})
	if err != nil {
		t.Fatalf("CreateCiclo: %v", err)
	}

	if _, err := workflow.FinalizeCiclo(ctx, ciclo.ID, &models.FinalizeCicloInput{}); err == nil {
		t.Fatal("finalize must be rejected before drying")
	}

	if _, err := workflow.BeginDrying(ctx, ciclo.ID); err != nil {
		t.Fatalf("BeginDrying: %v", err)
	}

	final, err := workflow.FinalizeCiclo(ctx, ciclo.ID, &models.FinalizeCicloInput{
		DryWeightGrams: "312.5",
		Tags:           models.StringList{"top-shelf"},
	})
	if err != nil {
		t.Fatalf("FinalizeCiclo: %v", err)
	}
	if final.State != models.CicloStateFinalized {
		t.Fatalf("state after finalize %q", final.State)
	}
	if !final.DryWeightGrams.Equal(decimal.RequireFromString("312.5")) {
		t.Fatalf("dry weight %s", final.DryWeightGrams)
	}

	// a second finalize must fail and must not mint another jar
	if _, err := workflow.FinalizeCiclo(ctx, ciclo.ID, &models.FinalizeCicloInput{}); err == nil {
		t.Fatal("double finalize must be rejected")
	}
	jars, err := models.GetCuringJars(ctx)
	if err != nil {
		t.Fatalf("GetCuringJars: %v", err)
	}
	if len(jars) != 1 {
		t.Fatalf("expected exactly one curing jar, got %d", len(jars))
	}
	if jars[0].SourceCicloId != ciclo.ID {
		t.Fatalf("jar source ciclo %d, want %d", jars[0].SourceCicloId, ciclo.ID)
	}
}

func TestPromotePhenoIsAtomicAndSingleShot(t *testing.T) {
	ctx := setupIntegration(t)

	sala := mkSala(t, ctx, "Sala A")
	strain := mkStrain(t, ctx, "Mother", 5, 0)

	ciclo, err := workflow.CreateCiclo(ctx, &models.NewCiclo{
		SalaId: sala.ID,
		Name:   "Hunt",
		Genetics: []models.NewGeneticAllocation{
			{StrainId: strain.ID, Quantity: 3, Source: models.StockSourceClone, TrackIndividually: true},
		},
	})
	if err != nil {
		t.Fatalf("CreateCiclo: %v", err)
	}
	if !utils.DereferencePtr(ciclo.IsPhenohunt) {
		t.Fatal("tracked allocations must flag the ciclo as a phenohunt")
	}
	phenoId := ciclo.Genetics[0].PhenoId

	promoted, err := workflow.PromoteStrain(ctx, ciclo.ID, phenoId, "Mother #1")
	if err != nil {
		t.Fatalf("PromoteStrain: %v", err)
	}
	if promoted.CloneStock != 1 {
		t.Fatalf("promoted strain starts with %d clones, want 1", promoted.CloneStock)
	}
	if !utils.DereferencePtr(promoted.Favorite) {
		t.Fatal("promoted strain must start flagged favorite")
	}
	if promoted.Parents != "Mother" {
		t.Fatalf("promoted strain lineage %q", promoted.Parents)
	}

	if _, err := workflow.PromoteStrain(ctx, ciclo.ID, phenoId, "Mother #1 again"); err == nil {
		t.Fatal("a pheno must not promote twice")
	}

	// duplicate target name is rejected before anything is written
	other := ciclo.Genetics[1].PhenoId
	if _, err := workflow.PromoteStrain(ctx, ciclo.ID, other, "Mother #1"); err == nil {
		t.Fatal("duplicate catalog name must reject the promotion")
	}
}

func TestLegacySeedMigrationMergesAndStampsOnce(t *testing.T) {
	ctx := setupIntegration(t)

	userId, _ := utils.GetUserIdFromContext(ctx)
	db := config.GetDB()

	// put the user back on the legacy version with some legacy rows, one of
	// which collides case-insensitively with an existing catalog strain
	mkStrain(t, ctx, "Critical", 0, 2)
	seeds := []models.LegacySeed{
		{UserId: userId, Name: "critical", Bank: "OldBank", Quantity: 3},
		{UserId: userId, Name: "Nueva", Bank: "Barney's", Quantity: 7},
	}
	if err := db.Create(&seeds).Error; err != nil {
		t.Fatalf("seed legacy rows: %v", err)
	}
	if err := db.Model(&models.User{}).Where("id = ?", userId).
		UpdateColumn("data_model_version", 1).Error; err != nil {
		t.Fatalf("reset version: %v", err)
	}

	if err := workflow.RunUserDataMigration(ctx); err != nil {
		t.Fatalf("RunUserDataMigration: %v", err)
	}

	strains, err := models.GetStrains(ctx, nil)
	if err != nil {
		t.Fatalf("GetStrains: %v", err)
	}
	byName := map[string]*models.GeneticStrain{}
	for _, s := range strains {
		byName[s.Name] = s
	}
	if got := byName["Critical"]; got == nil || got.SeedStock != 5 {
		t.Fatalf("case-insensitive merge failed: %+v", byName["Critical"])
	}
	if got := byName["Critical"]; got.Bank == "" {
		t.Fatal("merge must fill the empty bank field")
	}
	if got := byName["Nueva"]; got == nil || got.SeedStock != 7 || got.Bank != "Barney's" {
		t.Fatalf("new strain from legacy seed: %+v", byName["Nueva"])
	}

	var remaining int64
	if err := db.Model(&models.LegacySeed{}).Where("user_id = ?", userId).Count(&remaining).Error; err != nil {
		t.Fatalf("count legacy rows: %v", err)
	}
	if remaining != 0 {
		t.Fatalf("%d legacy rows survived the migration", remaining)
	}

	// second run is a stamped no-op
	if err := workflow.RunUserDataMigration(ctx); err != nil {
		t.Fatalf("second RunUserDataMigration: %v", err)
	}
	after, err := models.GetStrains(ctx, nil)
	if err != nil {
		t.Fatalf("GetStrains: %v", err)
	}
	for _, s := range after {
		if s.Name == "Critical" && s.SeedStock != 5 {
			t.Fatalf("idempotence violated: seed stock %d", s.SeedStock)
		}
	}
}

func startRedisContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("cultiva-test-redis-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-p", "127.0.0.1:0:6379",
		"redis:7-alpine",
	)
	if err != nil {
		t.Fatalf("start redis container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "6379/tcp")
	if err != nil {
		t.Fatalf("redis docker port: %v", err)
	}
	deadline := time.Now().Add(60 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "redis-cli", "ping")
		if err == nil {
			return name, port
		}
		time.Sleep(250 * time.Millisecond)
	}
	t.Fatalf("redis did not become ready")
	return "", ""
}

func startMySQLContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("cultiva-test-mysql-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-e", "MYSQL_ROOT_PASSWORD=testpw",
		"-e", "MYSQL_DATABASE=cultiva_test",
		"-p", "127.0.0.1:0:3306",
		"mysql:8.0",
		"--default-authentication-plugin=mysql_native_password",
	)
	if err != nil {
		t.Fatalf("start mysql container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "3306/tcp")
	if err != nil {
		t.Fatalf("mysql docker port: %v", err)
	}
	deadline := time.Now().Add(120 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "mysqladmin", "ping", "-h", "127.0.0.1", "-ptestpw", "--silent")
		if err == nil {
			return name, port
		}
		time.Sleep(500 * time.Millisecond)
	}
	t.Fatalf("mysql did not become ready")
	return "", ""
}

func dockerHostPort(container, portProto string) (string, error) {
	out, err := dockerRun("port", container, portProto)
	if err != nil {
		return "", fmt.Errorf("docker port: %w: %s", err, out)
	}
	re := regexp.MustCompile(`:(\d+)`)
	m := re.FindStringSubmatch(out)
	if len(m) != 2 {
		return "", fmt.Errorf("unexpected docker port output: %q", out)
	}
	return m[1], nil
}

func dockerRmForce(container string) error {
	if strings.TrimSpace(container) == "" {
		return nil
	}
	_, err := dockerRun("rm", "-f", container)
	return err
}

func dockerRun(args ...string) (string, error) {
	cmd := exec.Command("docker", args...)
	b, err := cmd.CombinedOutput()
	return string(b), err
}
