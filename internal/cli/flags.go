package cli

import (
	"flag"
	"fmt"
	"strings"
)

// stringList is a repeatable string flag.
type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ", ") }

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

// templateEscaper keeps flag values literal inside an HCL quoted string.
var templateEscaper = strings.NewReplacer("${", "$${", "%{", "%%{")

// runFlags are the convenience flags that map onto run configuration
// fields. Each one becomes a path=value override.
type runFlags struct {
	seed           int
	maxIterations  int
	experimentName string
	runName        string
	resume         bool
	loadRun        string
	loadCheckpoint string
	remoteRunPath  string
	motionFile     string
	video          bool
	videoLength    int
	videoInterval  int
	enableNaNGuard bool
	launcherLogDir string
	gpuIDs         string
}

func (r *runFlags) register(fs *flag.FlagSet) {
	fs.IntVar(&r.seed, "seed", 0, "Base random seed. Worker i uses seed+i.")
	fs.IntVar(&r.maxIterations, "max-iterations", 0, "Number of training iterations.")
	fs.StringVar(&r.experimentName, "experiment-name", "", "Experiment name; runs are logged under <log-root>/<experiment-name>.")
	fs.StringVar(&r.runName, "run-name", "", "Suffix appended to the run directory name.")
	fs.BoolVar(&r.resume, "resume", false, "Resume from a checkpoint of a previous run.")
	fs.StringVar(&r.loadRun, "load-run", "", "Run directory to resume from, or 'latest'.")
	fs.StringVar(&r.loadCheckpoint, "load-checkpoint", "", "Checkpoint to resume from: 'latest', a number or a file name.")
	fs.StringVar(&r.remoteRunPath, "remote-run-path", "", "Remote run reference to resume from (implies --resume).")
	fs.StringVar(&r.motionFile, "motion-file", "", "Reference motion file for tracking tasks.")
	fs.BoolVar(&r.video, "video", false, "Record training videos on the main worker.")
	fs.IntVar(&r.videoLength, "video-length", 0, "Length of each recorded video in steps.")
	fs.IntVar(&r.videoInterval, "video-interval", 0, "Steps between recorded videos.")
	fs.BoolVar(&r.enableNaNGuard, "enable-nan-guard", false, "Dump simulation state when it diverges.")
	fs.StringVar(&r.launcherLogDir, "launcher-log-dir", "", "Directory for worker process logs.")
	fs.StringVar(&r.gpuIDs, "gpu-ids", "", "Devices to train on: 'all', 'none' or a list such as 0,1.")
}

// assignments returns the overrides for the flags the user set, in a fixed
// order.
func (r *runFlags) assignments(fs *flag.FlagSet) []string {
	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	var out []string
	add := func(name, path string, value any) {
		if !set[name] {
			return
		}
		switch v := value.(type) {
		case string:
			out = append(out, fmt.Sprintf("%s=%q", path, templateEscaper.Replace(v)))
		default:
			out = append(out, fmt.Sprintf("%s=%v", path, v))
		}
	}
	add("seed", "agent.seed", r.seed)
	add("max-iterations", "agent.max_iterations", r.maxIterations)
	add("experiment-name", "agent.experiment_name", r.experimentName)
	add("run-name", "agent.run_name", r.runName)
	add("load-run", "agent.load_run", r.loadRun)
	add("load-checkpoint", "agent.load_checkpoint", r.loadCheckpoint)
	add("remote-run-path", "remote_run_path", r.remoteRunPath)
	if set["remote-run-path"] && !set["resume"] {
		out = append(out, "agent.resume=true")
	}
	add("resume", "agent.resume", r.resume)
	add("motion-file", "motion_file", r.motionFile)
	add("video", "video", r.video)
	add("video-length", "video_length", r.videoLength)
	add("video-interval", "video_interval", r.videoInterval)
	add("enable-nan-guard", "enable_nan_guard", r.enableNaNGuard)
	add("launcher-log-dir", "launcher_log_dir", r.launcherLogDir)
	add("gpu-ids", "gpu_ids", r.gpuIDs)
	return out
}
