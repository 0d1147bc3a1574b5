package task

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/entangled/brei/internal/tmpl"
)

func TestSpec_AllTargets(t *testing.T) {
	spec := Spec{
		Creates: []string{"out.txt"},
		Name:    "build",
		Stdout:  "var(result)",
	}
	assert.Equal(t, []string{"out.txt", "var(result)", "#build"}, spec.AllTargets())
}

func TestSpec_AllDependencies(t *testing.T) {
	spec := Spec{
		Requires: []string{"in.txt"},
		Stdin:    "var(seed)",
		Path:     "scripts/run.sh",
	}
	assert.Equal(t, []string{"in.txt", "var(seed)", "scripts/run.sh"}, spec.AllDependencies())
}

func TestSpec_GatherArgs(t *testing.T) {
	spec := Spec{
		Creates: []string{"${dir}/out.txt"},
		Script:  "echo ${msg} ${msg}",
		Stdin:   "var(seed)",
	}
	assert.Equal(t, []string{"dir", "msg"}, spec.GatherArgs())
}

func TestSpec_Substitute(t *testing.T) {
	spec := Spec{
		Creates:     []string{"${dir}/out.txt"},
		Requires:    []string{"${dir}/in.txt"},
		Script:      "cp ${dir}/in.txt ${dir}/out.txt",
		Description: "copy in ${dir}",
		Force:       true,
	}
	got := spec.Substitute(tmpl.MapEnv{"dir": "build"})
	assert.Equal(t, Spec{
		Creates:     []string{"build/out.txt"},
		Requires:    []string{"build/in.txt"},
		Script:      "cp build/in.txt build/out.txt",
		Description: "copy in build",
		Force:       true,
	}, got)
	// The original is untouched.
	assert.Equal(t, []string{"${dir}/out.txt"}, spec.Creates)
}

func TestBind_RejectsPhonyStdout(t *testing.T) {
	_, err := bind(Spec{Stdout: "#oops", Script: "true"})
	var taskErr *Error
	assert.ErrorAs(t, err, &taskErr)
}

func TestBind_RejectsPhonyStdin(t *testing.T) {
	_, err := bind(Spec{Stdin: "#oops", Script: "true"})
	var taskErr *Error
	assert.ErrorAs(t, err, &taskErr)
}

func TestBind_WiresImplicitTargetsAndDependencies(t *testing.T) {
	task, err := bind(Spec{
		Creates: []string{"out.txt"},
		Name:    "build",
		Stdout:  "var(x)",
		Stdin:   "in.txt",
		Script:  "true",
	})
	assert.NoError(t, err)
	assert.Len(t, task.creates, 3)
	assert.Len(t, task.requires, 1)
	assert.Equal(t, []string{"out.txt"}, task.targetPaths())
	assert.Equal(t, []string{"in.txt"}, task.dependencyPaths())
}

func TestDefaultRunners(t *testing.T) {
	runners := DefaultRunners()
	assert.Equal(t, Runner{Command: "bash", Args: []string{"${script}"}}, runners["bash"])
	assert.Equal(t, Runner{Command: "python", Args: []string{"${script}"}}, runners["python"])
}
