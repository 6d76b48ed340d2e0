// Package healthsimcli owns the healthsim command line application,
// including the command that starts the API servers.
package healthsimcli

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/bgentry/que-go"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/pkg/errors"
	"github.com/urfave/cli"

	"github.com/mark64oswald/healthsim-core/conf"
	"github.com/mark64oswald/healthsim-core/healthsim/api"
	"github.com/mark64oswald/healthsim-core/healthsim/constants"
	"github.com/mark64oswald/healthsim-core/healthsim/database"
	"github.com/mark64oswald/healthsim-core/healthsim/formulary"
	"github.com/mark64oswald/healthsim-core/healthsim/health"
	"github.com/mark64oswald/healthsim-core/healthsim/member"
	"github.com/mark64oswald/healthsim-core/healthsim/models"
	"github.com/mark64oswald/healthsim-core/healthsim/models/postgres"
	"github.com/mark64oswald/healthsim-core/healthsim/patient"
	"github.com/mark64oswald/healthsim-core/healthsim/rxmember"
	"github.com/mark64oswald/healthsim-core/healthsim/service"
	"github.com/mark64oswald/healthsim-core/healthsim/servicemux"
	"github.com/mark64oswald/healthsim-core/healthsim/utils"
	"github.com/mark64oswald/healthsim-core/healthsim/web"
	"github.com/mark64oswald/healthsim-core/healthsimmcp"
	"github.com/mark64oswald/healthsim-core/log"
)

const Name = "healthsim"
const Usage = "HealthSim synthetic healthcare data CLI"

func GetApp() *cli.App {
	return setUpApp()
}

func setUpApp() *cli.App {
	app := cli.NewApp()
	app.Name = Name
	app.Usage = Usage
	app.Version = constants.Version
	var count int
	var seed int64
	var scenario, planCode, bin, pcn, groupNumber, output, filePath, dirToDelete, migrationDir, threshold string
	app.Commands = []cli.Command{
		{
			Name:  "start-api",
			Usage: "Start the API",
			Action: func(c *cli.Context) error {
				db, err := database.Connect()
				if err != nil {
					return err
				}

				queDB, err := database.QueuePool()
				if err != nil {
					return err
				}
				defer queDB.Close()

				cfg, err := service.LoadConfig()
				if err != nil {
					return err
				}

				svc := service.NewService(postgres.NewRepository(db), cfg)
				enq := api.NewQueEnqueuer(que.NewClient(queDB))
				h := api.NewHandler(svc, enq, health.NewHealthChecker(db))
				rx := api.NewRxHandler()

				fmt.Fprintf(app.Writer, "%s\n", "Starting healthsim...")

				// Port 3001 only redirects plain HTTP to HTTPS.
				srv := &http.Server{
					Handler:      web.NewHTTPRouter(),
					Addr:         ":3001",
					ReadTimeout:  5 * time.Second,
					WriteTimeout: 5 * time.Second,
				}
				go func() { log.API.Fatal(srv.ListenAndServe()) }()

				apiServer := &http.Server{
					Handler:      web.NewAPIRouter(h, rx),
					ReadTimeout:  time.Duration(utils.GetEnvInt("API_READ_TIMEOUT", 10)) * time.Second,
					WriteTimeout: time.Duration(utils.GetEnvInt("API_WRITE_TIMEOUT", 20)) * time.Second,
					IdleTimeout:  time.Duration(utils.GetEnvInt("API_IDLE_TIMEOUT", 120)) * time.Second,
				}

				fileserver := &http.Server{
					Handler:      web.NewDataRouter(),
					ReadTimeout:  time.Duration(utils.GetEnvInt("FILESERVER_READ_TIMEOUT", 10)) * time.Second,
					WriteTimeout: time.Duration(utils.GetEnvInt("FILESERVER_WRITE_TIMEOUT", 360)) * time.Second,
					IdleTimeout:  time.Duration(utils.GetEnvInt("FILESERVER_IDLE_TIMEOUT", 120)) * time.Second,
				}

				smux := servicemux.New(":3000")
				smux.AddServer(fileserver, "/data")
				smux.AddServer(apiServer, "")
				smux.Serve()

				return nil
			},
		},
		{
			Name:  "start-mcp",
			Usage: "Start the MCP tool server on stdio",
			Action: func(c *cli.Context) error {
				return healthsimmcp.Serve(context.Background())
			},
		},
		{
			Name:     "generate-patients",
			Category: "Data generation",
			Usage:    "Generate synthetic patients as NDJSON",
			Flags: []cli.Flag{
				cli.IntFlag{Name: "count", Usage: "Number of patients", Value: 10, Destination: &count},
				cli.Int64Flag{Name: "seed", Usage: "Generator seed, 0 for random", Destination: &seed},
				cli.StringFlag{Name: "scenario", Usage: "Clinical scenario to apply", Destination: &scenario},
				cli.StringFlag{Name: "output", Usage: "Output file, stdout when empty", Destination: &output},
			},
			Action: func(c *cli.Context) error {
				g := patient.New(generatorSeed(seed))
				patients, err := g.GenerateBatch(count, patient.Options{Scenario: scenario})
				if err != nil {
					return err
				}
				return writeNDJSON(app, output, len(patients), func(i int) interface{} { return patients[i] })
			},
		},
		{
			Name:     "generate-members",
			Category: "Data generation",
			Usage:    "Generate synthetic insurance members as NDJSON",
			Flags: []cli.Flag{
				cli.IntFlag{Name: "count", Usage: "Number of members", Value: 10, Destination: &count},
				cli.Int64Flag{Name: "seed", Usage: "Generator seed, 0 for random", Destination: &seed},
				cli.StringFlag{Name: "plan", Usage: "Plan code to enroll members in", Destination: &planCode},
				cli.StringFlag{Name: "output", Usage: "Output file, stdout when empty", Destination: &output},
			},
			Action: func(c *cli.Context) error {
				g := member.New(generatorSeed(seed))
				members, err := g.GenerateBatch(count, member.Options{PlanCode: planCode})
				if err != nil {
					return err
				}
				return writeNDJSON(app, output, len(members), func(i int) interface{} { return members[i] })
			},
		},
		{
			Name:     "generate-rx-members",
			Category: "Data generation",
			Usage:    "Generate synthetic pharmacy members as NDJSON",
			Flags: []cli.Flag{
				cli.IntFlag{Name: "count", Usage: "Number of members", Value: 10, Destination: &count},
				cli.Int64Flag{Name: "seed", Usage: "Generator seed, 0 for random", Destination: &seed},
				cli.StringFlag{Name: "bin", Usage: "Card BIN", Value: constants.TestBIN, Destination: &bin},
				cli.StringFlag{Name: "pcn", Usage: "Card PCN", Value: constants.TestPCN, Destination: &pcn},
				cli.StringFlag{Name: "group", Usage: "Card group number", Value: constants.TestGroup, Destination: &groupNumber},
				cli.StringFlag{Name: "output", Usage: "Output file, stdout when empty", Destination: &output},
			},
			Action: func(c *cli.Context) error {
				g := rxmember.New(generatorSeed(seed))
				members, err := g.GenerateBatch(count, bin, pcn, groupNumber, rxmember.Options{})
				if err != nil {
					return err
				}
				return writeNDJSON(app, output, len(members), func(i int) interface{} { return members[i] })
			},
		},
		{
			Name:     "import-formulary",
			Category: "Data import",
			Usage:    "Import a TOML formulary file into the database",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:        "file",
					Usage:       "Location of formulary file in TOML format",
					Destination: &filePath,
				},
			},
			Action: func(c *cli.Context) error {
				n, err := importFormulary(filePath)
				if err != nil {
					return err
				}
				fmt.Fprintf(app.Writer, "Imported %d formulary drugs\n", n)
				return nil
			},
		},
		{
			Name:     "migrate",
			Category: "Database tools",
			Usage:    "Apply database migrations",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:        "dir",
					Usage:       "Directory containing migration files",
					Value:       "db/migrations/healthsim",
					Destination: &migrationDir,
				},
			},
			Action: func(c *cli.Context) error {
				m, err := migrate.New("file://"+migrationDir, conf.GetEnv("DATABASE_URL"))
				if err != nil {
					return err
				}
				if err := m.Up(); err != nil && err != migrate.ErrNoChange {
					return err
				}
				fmt.Fprintf(app.Writer, "%s\n", "Migrations applied")
				return nil
			},
		},
		{
			Name:     "archive-job-files",
			Category: "Cleanup",
			Usage:    "Update job statuses and move files to an inaccessible location",
			Action: func(c *cli.Context) error {
				return archiveExpiring()
			},
		},
		{
			Name:     "cleanup-archive",
			Category: "Cleanup",
			Usage:    "Remove job directory and files from archive and update job status to Expired",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:        "threshold",
					Usage:       "How long files should wait in archive before deletion, in hours",
					Destination: &threshold,
				},
			},
			Action: func(c *cli.Context) error {
				th, err := parseThreshold(threshold)
				if err != nil {
					return err
				}
				return cleanupArchive(th)
			},
		},
		{
			Name:     "delete-dir-contents",
			Category: "Cleanup",
			Usage:    "Delete all of the files in a directory",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:        "dirToDelete",
					Usage:       "Name of the directory to delete the files from",
					Destination: &dirToDelete,
				},
			},
			Action: func(c *cli.Context) error {
				fi, err := os.Stat(dirToDelete)
				if err != nil {
					return err
				}
				if !fi.IsDir() {
					return fmt.Errorf("unable to delete directory contents because %v does not reference a directory", dirToDelete)
				}
				filesDeleted, err := utils.DeleteDirectoryContents(dirToDelete)
				if filesDeleted > 0 {
					fmt.Fprintf(app.Writer, "Successfully deleted %v files from %v\n", filesDeleted, dirToDelete)
				}
				return err
			},
		},
	}
	return app
}

func generatorSeed(seed int64) int64 {
	if seed == 0 {
		return time.Now().UnixNano()
	}
	return seed
}

func writeNDJSON(app *cli.App, output string, n int, item func(int) interface{}) error {
	out := app.Writer
	if output != "" {
		f, err := os.Create(filepath.Clean(output))
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}

	enc := json.NewEncoder(out)
	for i := 0; i < n; i++ {
		if err := enc.Encode(item(i)); err != nil {
			return err
		}
	}
	return nil
}

func importFormulary(filePath string) (int, error) {
	if filePath == "" {
		return 0, errors.New("formulary file (--file) is required")
	}

	data, err := os.ReadFile(filepath.Clean(filePath))
	if err != nil {
		return 0, errors.Wrapf(err, "could not read formulary file %s", filePath)
	}

	f, err := formulary.NewGenerator().FromTOML(data)
	if err != nil {
		return 0, errors.Wrap(err, "could not parse formulary file")
	}

	drugs := f.Drugs()
	rows := make([]models.FormularyDrug, 0, len(drugs))
	for _, d := range drugs {
		rows = append(rows, models.FormularyDrug{
			NDC:           d.NDC,
			GPI:           d.GPI,
			Name:          d.Name,
			Tier:          d.Tier,
			RequiresPA:    d.RequiresPA,
			StepTherapy:   d.StepTherapy,
			QuantityLimit: d.QuantityLimit,
		})
	}

	db, err := database.Connect()
	if err != nil {
		return 0, err
	}
	defer db.Close()

	r := postgres.NewRepository(db)
	if err := r.CreateFormularyDrugs(context.Background(), rows); err != nil {
		return 0, err
	}
	return len(rows), nil
}

// archiveExpiring flips expired Completed jobs to Archived, then moves
// each archived job's payload directory out of the fileserver's reach.
func archiveExpiring() error {
	log.API.Info("Archiving expiring job files...")

	db, err := database.Connect()
	if err != nil {
		return err
	}
	defer db.Close()

	cfg, err := service.LoadConfig()
	if err != nil {
		return err
	}
	svc := service.NewService(postgres.NewRepository(db), cfg)

	ctx := context.Background()
	archived, err := svc.ArchiveExpiredJobs(ctx)
	if err != nil {
		log.API.Error(err)
		return err
	}
	log.API.Infof("Marked %d jobs as Archived", archived)

	jobs, err := svc.GetJobs(ctx, models.JobStatusArchived)
	if err != nil {
		log.API.Error(err)
		return err
	}

	var lastJobError error
	for _, j := range jobs {
		jobDir := fmt.Sprintf("%s/%d", conf.GetEnv("HEALTHSIM_PAYLOAD_DIR"), j.ID)
		expDir := fmt.Sprintf("%s/%d", conf.GetEnv("HEALTHSIM_ARCHIVE_DIR"), j.ID)

		if _, err := os.Stat(jobDir); os.IsNotExist(err) {
			continue
		}

		if err := os.Rename(jobDir, expDir); err != nil {
			log.API.Error(err)
			lastJobError = err
		}
	}

	return lastJobError
}

func cleanupArchive(hrThreshold int) error {
	db, err := database.Connect()
	if err != nil {
		return err
	}
	defer db.Close()

	r := postgres.NewRepository(db)
	ctx := context.Background()

	jobs, err := r.GetJobs(ctx, models.JobStatusArchived)
	if err != nil {
		return err
	}

	if len(jobs) == 0 {
		log.API.Info("No archived job files to clean")
		return nil
	}

	for _, job := range jobs {
		elapsed := time.Since(job.UpdatedAt).Hours()
		if int(elapsed) < hrThreshold {
			continue
		}

		jobArchiveDir := fmt.Sprintf("%s/%d", conf.GetEnv("HEALTHSIM_ARCHIVE_DIR"), job.ID)
		if err := os.RemoveAll(jobArchiveDir); err != nil {
			log.API.Errorf("Unable to remove %s because %s", jobArchiveDir, err)
			continue
		}

		if err := r.UpdateJobStatus(ctx, job.ID, models.JobStatusExpired); err != nil {
			return err
		}

		log.API.WithField("job_id", job.ID).Info("Files cleaned from archive and job status set to Expired")
	}

	return nil
}

func parseThreshold(threshold string) (int, error) {
	if threshold == "" {
		return utils.GetEnvInt("ARCHIVE_CLEANUP_THRESHOLD_HR", 24), nil
	}
	th, err := strconv.Atoi(threshold)
	if err != nil {
		return 0, errors.Wrap(err, "threshold must be an integer number of hours")
	}
	return th, nil
}
