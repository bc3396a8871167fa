package config

// EnvConfig is the environment side of a task configuration.
type EnvConfig struct {
	Seed           int                      `cty:"seed"`
	NumEnvs        int                      `cty:"num_envs"`
	EpisodeLengthS float64                  `cty:"episode_length_s"`
	Decimation     int                      `cty:"decimation"`
	Scene          SceneConfig              `cty:"scene"`
	Sim            SimConfig                `cty:"sim"`
	Commands       map[string]CommandConfig `cty:"commands"`
	Rewards        map[string]float64       `cty:"rewards"`
	Terminations   []string                 `cty:"terminations"`
}

// SceneConfig selects the robot and terrain.
type SceneConfig struct {
	Robot      string  `cty:"robot"`
	Terrain    string  `cty:"terrain"`
	EnvSpacing float64 `cty:"env_spacing"`
}

// SimConfig holds simulation backend settings.
type SimConfig struct {
	Timestep   float64        `cty:"timestep"`
	Iterations int            `cty:"iterations"`
	NaNGuard   NaNGuardConfig `cty:"nan_guard"`
}

// NaNGuardConfig controls state dumping when the simulation diverges.
type NaNGuardConfig struct {
	Enabled    bool   `cty:"enabled"`
	BufferSize int    `cty:"buffer_size"`
	OutputDir  string `cty:"output_dir"`
}

// Command kinds.
const (
	CommandVelocity = "velocity"
	CommandMotion   = "motion"
)

// CommandConfig describes one command generator. Velocity commands use the
// ranges, motion commands replay a reference motion file.
type CommandConfig struct {
	Kind            string    `cty:"kind"`
	ResamplingTimeS float64   `cty:"resampling_time_s"`
	LinVelX         []float64 `cty:"lin_vel_x"`
	LinVelY         []float64 `cty:"lin_vel_y"`
	AngVelZ         []float64 `cty:"ang_vel_z"`
	MotionFile      string    `cty:"motion_file"`
}

// AgentConfig is the on-policy runner configuration.
type AgentConfig struct {
	Seed           int             `cty:"seed"`
	Device         string          `cty:"device"`
	NumStepsPerEnv int             `cty:"num_steps_per_env"`
	MaxIterations  int             `cty:"max_iterations"`
	SaveInterval   int             `cty:"save_interval"`
	ExperimentName string          `cty:"experiment_name"`
	RunName        string          `cty:"run_name"`
	Logger         string          `cty:"logger"`
	WandbProject   string          `cty:"wandb_project"`
	WandbTags      []string        `cty:"wandb_tags"`
	Resume         bool            `cty:"resume"`
	LoadRun        string          `cty:"load_run"`
	LoadCheckpoint string          `cty:"load_checkpoint"`
	ClipActions    float64         `cty:"clip_actions"`
	Policy         PolicyConfig    `cty:"policy"`
	Algorithm      AlgorithmConfig `cty:"algorithm"`
}

// PolicyConfig describes the actor-critic network.
type PolicyConfig struct {
	InitNoiseStd      float64 `cty:"init_noise_std"`
	ActorHiddenDims   []int   `cty:"actor_hidden_dims"`
	CriticHiddenDims  []int   `cty:"critic_hidden_dims"`
	Activation        string  `cty:"activation"`
	ActorObsNormalize bool    `cty:"actor_obs_normalization"`
}

// AlgorithmConfig holds PPO hyperparameters.
type AlgorithmConfig struct {
	ValueLossCoef       float64 `cty:"value_loss_coef"`
	UseClippedValueLoss bool    `cty:"use_clipped_value_loss"`
	ClipParam           float64 `cty:"clip_param"`
	EntropyCoef         float64 `cty:"entropy_coef"`
	NumLearningEpochs   int     `cty:"num_learning_epochs"`
	NumMiniBatches      int     `cty:"num_mini_batches"`
	LearningRate        float64 `cty:"learning_rate"`
	Schedule            string  `cty:"schedule"`
	Gamma               float64 `cty:"gamma"`
	Lam                 float64 `cty:"lam"`
	DesiredKL           float64 `cty:"desired_kl"`
	MaxGradNorm         float64 `cty:"max_grad_norm"`
}

// Defaults for the launch options of a RunConfig.
const (
	DefaultVideoLength   = 200
	DefaultVideoInterval = 2000
)

// RunConfig is the fully resolved configuration of one run. Devices is not
// part of the cty tree; it is carried beside it and merged separately.
type RunConfig struct {
	Env            EnvConfig   `cty:"env"`
	Agent          AgentConfig `cty:"agent"`
	MotionFile     string      `cty:"motion_file"`
	Video          bool        `cty:"video"`
	VideoLength    int         `cty:"video_length"`
	VideoInterval  int         `cty:"video_interval"`
	EnableNaNGuard bool        `cty:"enable_nan_guard"`
	LauncherLogDir string      `cty:"launcher_log_dir"`
	RemoteRunPath  string      `cty:"remote_run_path"`

	Devices DeviceRequest
}

// NewRunConfig wraps freshly produced env and agent configs with the default
// launch options.
func NewRunConfig(env *EnvConfig, agent *AgentConfig) *RunConfig {
	return &RunConfig{
		Env:           *env,
		Agent:         *agent,
		VideoLength:   DefaultVideoLength,
		VideoInterval: DefaultVideoInterval,
		Devices:       DeviceRequest{IDs: []int{0}},
	}
}

// IsTracking reports whether the environment replays a reference motion.
func (c *RunConfig) IsTracking() bool {
	cmd, ok := c.Env.Commands[CommandMotion]
	return ok && cmd.Kind == CommandMotion
}
