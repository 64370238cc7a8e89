package service

import "github.com/prometheus/client_golang/prometheus"

var taskMutations = prometheus.NewCounterVec(
	prometheus.CounterOpts{Name: "taskboard_task_mutations_total", Help: "Successful task mutations by operation"},
	[]string{"op"},
)

func init() { prometheus.MustRegister(taskMutations) }
