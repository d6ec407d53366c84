// Command co2ml trains random forest and gradient-boosted tree regressors on
// a vehicle CO2 emissions CSV and reports their test metrics and residuals.
package main

func main() {
	Execute()
}
