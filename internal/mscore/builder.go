package mscore

import "github.com/backmassage/scorebatch/internal/config"

// Build returns the full converter command line for one round. args[0] is
// the binary; extra arguments from the config precede the job flag.
//
//	mscore [converter args...] -j <job file>
func Build(cfg *config.Config) []string {
	args := make([]string, 0, len(cfg.ConverterArgs)+3)
	args = append(args, cfg.Converter)
	args = append(args, cfg.ConverterArgs...)
	args = append(args, "-j", cfg.JobFile)
	return args
}
