package fluid

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"cursorfluid/internal/gpu"
)

func TestKernelsDeclareProgramEntryPoint(t *testing.T) {
	specs := []gpu.ProgramSpec{
		advectionSpec(), advectionManualSpec(), curlSpec(), vorticitySpec(), divergenceSpec(),
		clearSpec(), pressureSpec(), gradientSubtractSpec(), splatSpec(), displaySpec(),
	}
	for _, spec := range specs {
		t.Run(spec.Name, func(t *testing.T) {
			assert.Contains(t, spec.Kernel, "__kernel void "+spec.Name+"(")
			assert.Equal(t, 1, strings.Count(spec.Kernel, "__kernel"), "one entry point per program")
		})
	}
	assert.Equal(t,
		strings.TrimPrefix(advectionKernel, "\n__kernel void advection"),
		strings.TrimPrefix(advectionManualKernel, "\n__kernel void advection_manual"),
		"both advection kernels share one body")
}
